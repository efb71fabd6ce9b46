package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/wikimark/internal/types"
	"github.com/conneroisu/wikimark/internal/wiki"
)

var tocCmd = &cobra.Command{
	Use:   "toc [file|-]",
	Short: "Print the table of contents of a wiki file",
	Long: `Print the numbered table of contents of a wiki file. With no file, or "-",
the markup is read from standard input.

Examples:
  wikimark toc pages/대문.wiki
  wikimark toc -f json pages/대문.wiki`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTOC,
}

var tocFormat *enumValue

func init() {
	rootCmd.AddCommand(tocCmd)

	tocFormat = addFormatFlag(tocCmd, "text", "json", "yaml")
}

// tocOutput is the structured form of the toc command.
type tocOutput struct {
	Page    string           `json:"page" yaml:"page"`
	Entries []types.TOCEntry `json:"entries" yaml:"entries"`
}

func runTOC(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := setup(cmd, nil)
	if err != nil {
		return err
	}
	defer closeLog()

	name, source, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	w, err := wiki.New(cfg, logger)
	if err != nil {
		return err
	}
	doc := w.Compile(cmd.Context(), name, source)
	printDiagnostics(cmd.ErrOrStderr(), name, doc.Diagnostics)

	out := cmd.OutOrStdout()
	if tocFormat.String() != "text" {
		entries := doc.TOC
		if entries == nil {
			entries = []types.TOCEntry{}
		}
		return writeStructured(out, tocFormat.String(), tocOutput{Page: name, Entries: entries})
	}

	for _, e := range doc.TOC {
		indent := strings.Repeat("  ", strings.Count(e.Number, ".")-1)
		fmt.Fprintf(out, "%s%s %s  #%s\n", indent, e.Number, e.Title, e.Anchor)
	}
	return nil
}
