package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conneroisu/wikimark/internal/services"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render every page into a static site",
	Long: `Render every page in the pages directory to HTML and write a static site
with an index page, a highlight stylesheet and a pages.json manifest.

Examples:
  wikimark build                  # write to the configured output directory
  wikimark build -o public --clean
  wikimark build --dry-run        # list the pages that would be built`,
	RunE: runBuild,
}

var (
	buildOutput  string
	buildWorkers int
	buildClean   bool
	buildDryRun  bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output directory (default from config)")
	buildCmd.Flags().IntVar(&buildWorkers, "workers", 0, "number of render workers (default from config)")
	buildCmd.Flags().BoolVar(&buildClean, "clean", false, "remove the output directory first")
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "list pages without writing anything")
	buildCmd.Flags().StringP("pages", "d", "", "pages directory")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := setup(cmd, map[string]string{"pages": "pages.dir"})
	if err != nil {
		return err
	}
	defer closeLog()

	svc := services.NewBuildService(cfg, logger)
	result, err := svc.Build(cmd.Context(), services.BuildOptions{
		Output:  buildOutput,
		Workers: buildWorkers,
		Clean:   buildClean,
		DryRun:  buildDryRun,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range result.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", errorLabel("error"), e)
	}

	if buildDryRun {
		for _, name := range result.Pages {
			fmt.Fprintln(out, name)
		}
		fmt.Fprintf(out, "\n%d pages would be written to %s\n", result.PageCount, result.OutputDir)
		return nil
	}

	summary := fmt.Sprintf("Built %d pages into %s in %s (%d diagnostics, %d cache hits)",
		result.PageCount-result.Failed, result.OutputDir, result.Duration.Round(time.Millisecond),
		result.Diagnostics, result.CacheHits)
	if !result.Success {
		color.New(color.FgYellow).Fprintln(out, summary)
		return fmt.Errorf("%d of %d pages failed to build", result.Failed, result.PageCount)
	}
	color.New(color.FgGreen).Fprintln(out, summary)
	return nil
}
