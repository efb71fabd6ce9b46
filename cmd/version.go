package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/wikimark/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE:  runVersion,
}

var (
	versionFormat   *enumValue
	versionShort    bool
	versionDetailed bool
)

func init() {
	rootCmd.AddCommand(versionCmd)

	versionFormat = addFormatFlag(versionCmd, "text", "json", "yaml")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "print commit, build time and platform")
	versionCmd.MarkFlagsMutuallyExclusive("short", "detailed")
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	switch {
	case versionFormat.String() != "text":
		return writeStructured(out, versionFormat.String(), version.GetBuildInfo())
	case versionShort:
		fmt.Fprintln(out, version.GetShortVersion())
	case versionDetailed:
		fmt.Fprintln(out, version.GetDetailedVersion())
	case version.IsRelease():
		fmt.Fprintf(out, "wikimark %s\n", version.GetVersion())
	default:
		fmt.Fprintf(out, "wikimark %s (development build)\n", version.GetVersion())
	}
	return nil
}
