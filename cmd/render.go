package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/templ"
	"github.com/fatih/color"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/renderer"
	"github.com/conneroisu/wikimark/internal/scanner"
	"github.com/conneroisu/wikimark/internal/types"
	"github.com/conneroisu/wikimark/internal/wiki"
)

var renderCmd = &cobra.Command{
	Use:   "render [file|-]",
	Short: "Render a wiki file to HTML",
	Long: `Render one wiki markup file to HTML. With no file, or "-", the markup is
read from standard input. Diagnostics are printed to standard error.

Examples:
  wikimark render pages/대문.wiki              # HTML fragment to stdout
  wikimark render --full -o out.html page.wiki  # standalone HTML document
  echo "'''굵게'''" | wikimark render`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

var (
	renderPage   string
	renderFull   bool
	renderOutput string
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderPage, "page", "n", "", "page name used as title (default: file name)")
	renderCmd.Flags().BoolVar(&renderFull, "full", false, "wrap the fragment in a standalone HTML document")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "write to file instead of stdout")
	renderCmd.Flags().String("link-prefix", "", "URL prefix of internal links")
	renderCmd.Flags().String("style", "", "chroma style for code highlighting")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := setup(cmd, map[string]string{
		"link-prefix": "render.link_prefix",
		"style":       "render.highlight_style",
	})
	if err != nil {
		return err
	}
	defer closeLog()

	name, source, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	if renderPage != "" {
		name = renderPage
	}

	w, err := wiki.New(cfg, logger)
	if err != nil {
		return err
	}
	entry, err := w.RenderSource(cmd.Context(), name, source)
	if err != nil {
		return err
	}
	printDiagnostics(cmd.ErrOrStderr(), name, entry.Document.Diagnostics)

	var out bytes.Buffer
	if renderFull {
		var css bytes.Buffer
		if err := w.Highlighter().WriteCSS(&css); err != nil {
			return errors.WrapRender(err, name, "writing highlight stylesheet")
		}
		page := renderer.Page(name, templ.Raw(entry.HTML), renderer.PageOptions{InlineCSS: css.String()})
		if err := page.Render(cmd.Context(), &out); err != nil {
			return errors.WrapRender(err, name, "rendering page layout")
		}
	} else {
		out.WriteString(entry.HTML)
	}
	out.WriteString("\n")

	return writeOutput(cmd, renderOutput, &out)
}

// readSource reads the markup named by args, or standard input when args
// is empty or "-". The page name is the file name without extension.
func readSource(cmd *cobra.Command, args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), scanner.MaxPageSize+1))
		if err != nil {
			return "", "", errors.WrapIO(err, errors.ErrCodeFileNotFound, "reading standard input")
		}
		if len(data) > scanner.MaxPageSize {
			return "", "", errors.NewValidationError(errors.ErrCodeValidationFailed, "input exceeds the maximum page size")
		}
		return "stdin", string(data), nil
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return "", "", errors.WrapIO(err, errors.ErrCodeFileNotFound, "reading page").WithLocation(path, 0)
	}
	if info.Size() > scanner.MaxPageSize {
		return "", "", errors.NewValidationError(errors.ErrCodeValidationFailed, "file exceeds the maximum page size").WithLocation(path, 0)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", errors.WrapIO(err, errors.ErrCodeFileNotFound, "reading page").WithLocation(path, 0)
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)), string(data), nil
}

// writeOutput writes buf to path atomically, or to stdout when path is "".
func writeOutput(cmd *cobra.Command, path string, buf *bytes.Buffer) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapIO(err, errors.ErrCodeInvalidPath, "creating output directory").WithLocation(dir, 0)
		}
	}
	if err := atomic.WriteFile(path, buf); err != nil {
		return errors.WrapIO(err, errors.ErrCodeInvalidPath, "writing output").WithLocation(path, 0)
	}
	return nil
}

var (
	errorLabel   = color.New(color.FgRed, color.Bold).SprintFunc()
	warningLabel = color.New(color.FgYellow, color.Bold).SprintFunc()
	infoLabel    = color.New(color.FgCyan).SprintFunc()
	fileLabel    = color.New(color.Bold).SprintFunc()
)

// printDiagnostics writes one "file:line: severity: message" line per
// diagnostic, with one-based line numbers.
func printDiagnostics(w io.Writer, file string, diags []types.Diagnostic) {
	for _, d := range diags {
		label := infoLabel(d.Severity.String())
		switch d.Severity {
		case types.SeverityError:
			label = errorLabel(d.Severity.String())
		case types.SeverityWarning:
			label = warningLabel(d.Severity.String())
		}
		fmt.Fprintf(w, "%s:%d: %s: %s\n", fileLabel(file), d.Line+1, label, d.Message)
	}
}
