package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/types"
	"github.com/conneroisu/wikimark/internal/wiki"
)

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Report markup diagnostics",
	Long: `Compile wiki files and report diagnostics: malformed or unterminated card
grids, unterminated templates, markdown tables without a separator row, code
fences in languages the highlighter does not know and footnotes that are never
referenced. With no files every page in the pages directory is checked.

The command fails when any error is found, or any warning with --strict.`,
	RunE: runCheck,
}

var (
	checkStrict bool
	checkHints  bool
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "treat warnings as errors")
	checkCmd.Flags().BoolVar(&checkHints, "hints", false, "suggest fixes for the reported diagnostics")
	checkCmd.Flags().StringP("pages", "d", "", "pages directory")
}

// checkTally counts diagnostics by severity.
type checkTally struct {
	files    int
	errors   int
	warnings int
	all      []types.Diagnostic
}

func (t *checkTally) add(diags []types.Diagnostic) {
	t.files++
	t.all = append(t.all, diags...)
	for _, d := range diags {
		switch d.Severity {
		case types.SeverityError:
			t.errors++
		case types.SeverityWarning:
			t.warnings++
		}
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := setup(cmd, map[string]string{"pages": "pages.dir"})
	if err != nil {
		return err
	}
	defer closeLog()

	w, err := wiki.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	var tally checkTally

	if len(args) == 0 {
		if err := w.Load(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", errorLabel("error"), err)
			tally.errors++
		}
		for _, p := range w.Pages() {
			entry, err := w.Render(ctx, p.Name)
			if err != nil {
				return err
			}
			printDiagnostics(out, p.FilePath, entry.Document.Diagnostics)
			tally.add(entry.Document.Diagnostics)
		}
	} else {
		for _, path := range args {
			name, source, err := readSource(cmd, []string{path})
			if err != nil {
				return err
			}
			doc := w.Compile(ctx, name, source)
			printDiagnostics(out, path, doc.Diagnostics)
			tally.add(doc.Diagnostics)
		}
	}

	if checkHints {
		if hints := errors.DiagnosticSuggestions(tally.all); len(hints) > 0 {
			fmt.Fprint(out, errors.FormatSuggestions("Hints:", hints))
		}
	}

	failed := tally.errors > 0 || (checkStrict && tally.warnings > 0)
	summary := fmt.Sprintf("%d files checked: %d errors, %d warnings", tally.files, tally.errors, tally.warnings)
	if failed {
		color.New(color.FgRed).Fprintln(out, summary)
		return fmt.Errorf("check failed with %d errors and %d warnings", tally.errors, tally.warnings)
	}
	color.New(color.FgGreen).Fprintln(out, summary)
	return nil
}
