package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conneroisu/wikimark/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the live preview server",
	Long: `Serve the pages directory over HTTP. Pages are rendered on request and
browsers reload automatically when a page changes.

Examples:
  wikimark serve                  # http://localhost:8080
  wikimark serve -p 3000 --open
  wikimark serve --live-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.IntP("port", "p", 8080, "port to listen on")
	flags.String("host", "localhost", "host to bind to")
	flags.Bool("open", false, "open the browser after starting")
	flags.Bool("live-reload", true, "reload browsers when pages change")
	flags.StringP("pages", "d", "", "pages directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := setup(cmd, map[string]string{
		"port":        "server.port",
		"host":        "server.host",
		"open":        "server.open",
		"live-reload": "server.live_reload",
		"pages":       "pages.dir",
	})
	if err != nil {
		return err
	}
	defer closeLog()

	svc := services.NewServeService(cfg, logger)
	info := svc.GetServerInfo()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Serving %s at %s\n", info.PagesDir, color.New(color.FgCyan, color.Underline).Sprint(info.ServerURL))
	if info.LiveReload {
		fmt.Fprintln(out, "Live reload enabled")
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	return svc.Serve(cmd.Context())
}
