// Package cmd provides the wikimark command-line interface.
//
// Configuration is read, lowest priority first, from defaults, the
// .wikimark.yml file (or the file named by --config or WIKIMARK_CONFIG_FILE),
// WIKIMARK_<SECTION>_<OPTION> environment variables and command flags.
package cmd

import (
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/wikimark/internal/config"
	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/logging"
)

// ConfigFileEnv names the environment variable holding a config file path.
const ConfigFileEnv = config.EnvPrefix + "_CONFIG_FILE"

var (
	cfgFile string
	noColor bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wikimark",
	Short: "Compile namu-style wiki markup to HTML",
	Long: `wikimark compiles namu-style wiki markup into HTML documents with a table
of contents, numbered footnotes and highlighted code.

Quick Start:
  wikimark init                   Create .wikimark.yml and sample pages
  wikimark serve                  Preview pages with live reload
  wikimark render page.wiki       Render one file to stdout
  wikimark check                  Report markup diagnostics
  wikimark build                  Write a static site`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprint(rootCmd.ErrOrStderr(), "Error: ")
		rootCmd.PrintErrln(errors.FormatErrorWithSuggestions(err))
	}
	return err
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default .wikimark.yml, or $"+ConfigFileEnv+")")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
}

// configFilePath returns the explicitly requested config file, or "" to
// search for the default one.
func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return os.Getenv(ConfigFileEnv)
}

// loadConfig reads the configuration with the command's flags layered on
// top. bindings maps flag names to configuration keys; only flags the user
// set take effect.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	v := viper.New()

	all := map[string]string{"log-level": "log.level", "log-format": "log.format"}
	for flag, key := range bindings {
		all[flag] = key
	}
	for flag, key := range all {
		if f := cmd.Flag(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "binding flag --"+flag)
			}
		}
	}

	path := configFilePath()
	if err := config.Setup(v, path); err != nil {
		return nil, configError(err, path)
	}
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return nil, configError(err, v.ConfigFileUsed())
	}
	return cfg, nil
}

func configError(err error, path string) error {
	if path == "" {
		path = config.FileName + ".yml"
	}
	return errors.NewEnhancedError("Failed to load configuration", err,
		errors.ConfigurationError(err.Error(), path))
}

// newLogger builds the logger described by cfg.Log. The returned function
// closes the log file, if any.
func newLogger(cmd *cobra.Command, cfg *config.Config) (logging.Logger, func(), error) {
	lc := &logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	}
	if cfg.Log.Dir == "" {
		return logging.NewLogger(lc), func() {}, nil
	}

	fl, err := logging.NewFileLogger(lc, logging.FileConfig{
		Dir:        filepath.Clean(cfg.Log.Dir),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, nil, errors.WrapIO(err, errors.ErrCodeInvalidPath, "opening log file")
	}
	return fl, func() { _ = fl.Close() }, nil
}

// setup loads the configuration and logger shared by most commands.
func setup(cmd *cobra.Command, bindings map[string]string) (*config.Config, logging.Logger, func(), error) {
	cfg, err := loadConfig(cmd, bindings)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closeLog, nil
}
