package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/wikimark/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE:  runConfigValidate,
}

var configShowFormat *enumValue

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	configShowFormat = addFormatFlag(configShowCmd, "yaml", "json")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	return writeStructured(cmd.OutOrStdout(), configShowFormat.String(), cfg)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	v := viper.New()
	path := configFilePath()
	if err := config.Setup(v, path); err != nil {
		return configError(err, path)
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return configError(err, v.ConfigFileUsed())
	}

	used := v.ConfigFileUsed()
	if used == "" {
		used = "defaults (no config file found)"
	}

	out := cmd.OutOrStdout()
	result := config.ValidateWithDetails(cfg)
	fmt.Fprint(out, result.String())
	if !result.Valid() {
		return fmt.Errorf("%s: %d validation errors", used, len(result.Errors.Errors))
	}
	color.New(color.FgGreen).Fprintf(out, "%s is valid\n", used)
	return nil
}
