package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/wikimark/internal/wiki"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the pages in the pages directory",
	RunE:    runList,
}

var listFormat *enumValue

func init() {
	rootCmd.AddCommand(listCmd)

	listFormat = addFormatFlag(listCmd, "table", "json", "yaml")
	listCmd.Flags().StringP("pages", "d", "", "pages directory")
}

// pageRow is one page in structured list output.
type pageRow struct {
	Name    string    `json:"name" yaml:"name"`
	Path    string    `json:"path" yaml:"path"`
	Size    int64     `json:"size" yaml:"size"`
	LastMod time.Time `json:"last_mod" yaml:"last_mod"`
	Hash    string    `json:"hash" yaml:"hash"`
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := setup(cmd, map[string]string{"pages": "pages.dir"})
	if err != nil {
		return err
	}
	defer closeLog()

	w, err := wiki.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := w.Load(cmd.Context()); err != nil {
		return err
	}

	rows := make([]pageRow, 0, len(w.Pages()))
	for _, p := range w.Pages() {
		rows = append(rows, pageRow{Name: p.Name, Path: p.FilePath, Size: p.Size, LastMod: p.LastMod, Hash: p.Hash})
	}

	out := cmd.OutOrStdout()
	if listFormat.String() != "table" {
		return writeStructured(out, listFormat.String(), rows)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\tPATH")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.Name, r.Size, r.LastMod.Format("2006-01-02 15:04"), r.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d pages\n", len(rows))
	return nil
}
