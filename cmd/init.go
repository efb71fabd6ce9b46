package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conneroisu/wikimark/internal/services"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a wiki project",
	Long: `Create a .wikimark.yml configuration file and a pages directory with sample
pages in dir, or the current directory. Existing files are left alone
unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initMinimal bool
	initForce   bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initMinimal, "minimal", false, "skip the sample pages")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	result, err := services.NewInitService().InitProject(services.InitOptions{
		ProjectDir: dir,
		Minimal:    initMinimal,
		Force:      initForce,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	created := color.New(color.FgGreen).Sprint("created")
	skipped := color.New(color.FgYellow).Sprint("exists ")
	for _, path := range result.Created {
		fmt.Fprintf(out, "  %s  %s\n", created, path)
	}
	for _, path := range result.Skipped {
		fmt.Fprintf(out, "  %s  %s\n", skipped, path)
	}
	fmt.Fprintf(out, "\nRun 'wikimark serve' in %s to preview %s\n", dir, result.PagesDir)
	return nil
}
