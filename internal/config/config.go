// Package config provides configuration management for wikimark using Viper
// for loading from .wikimark.yml, WIKIMARK_ environment variables and
// command-line flags.
//
// Load applies defaults for every unset key, then validates the result.
// Configured paths must be free of traversal and shell metacharacters.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides, e.g.
// WIKIMARK_SERVER_PORT.
const EnvPrefix = "WIKIMARK"

// FileName is the base name of the configuration file.
const FileName = ".wikimark"

type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Pages  PagesConfig  `yaml:"pages" mapstructure:"pages"`
	Render RenderConfig `yaml:"render" mapstructure:"render"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Build  BuildConfig  `yaml:"build" mapstructure:"build"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	Host           string   `yaml:"host" mapstructure:"host"`
	Open           bool     `yaml:"open" mapstructure:"open"`
	LiveReload     bool     `yaml:"live_reload" mapstructure:"live_reload"`
	ErrorOverlay   bool     `yaml:"error_overlay" mapstructure:"error_overlay"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`

	// RenderRateLimit caps POST /api/render requests per client per
	// minute. Zero disables the limit.
	RenderRateLimit int `yaml:"render_rate_limit" mapstructure:"render_rate_limit"`
}

type PagesConfig struct {
	Dir             string   `yaml:"dir" mapstructure:"dir"`
	Extensions      []string `yaml:"extensions" mapstructure:"extensions"`
	ExcludePatterns []string `yaml:"exclude_patterns" mapstructure:"exclude_patterns"`
	Index           string   `yaml:"index" mapstructure:"index"`
}

type RenderConfig struct {
	HighlightStyle string `yaml:"highlight_style" mapstructure:"highlight_style"`
	LinkPrefix     string `yaml:"link_prefix" mapstructure:"link_prefix"`
	ImageBaseURL   string `yaml:"image_base_url" mapstructure:"image_base_url"`
}

type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// MarshalYAML writes durations in time.ParseDuration form so a written
// config file reads back unchanged.
func (c CacheConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Enabled         bool   `yaml:"enabled"`
		TTL             string `yaml:"ttl"`
		CleanupInterval string `yaml:"cleanup_interval"`
	}{c.Enabled, c.TTL.String(), c.CleanupInterval.String()}, nil
}

type BuildConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	Workers   int    `yaml:"workers" mapstructure:"workers"`
	Clean     bool   `yaml:"clean" mapstructure:"clean"`
}

type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	Dir        string `yaml:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.open", false)
	v.SetDefault("server.live_reload", true)
	v.SetDefault("server.error_overlay", true)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.render_rate_limit", 120)

	v.SetDefault("pages.dir", "./pages")
	v.SetDefault("pages.extensions", []string{".wiki", ".namu"})
	v.SetDefault("pages.exclude_patterns", []string{"*.bak", ".*"})
	v.SetDefault("pages.index", "대문")

	v.SetDefault("render.highlight_style", "github")
	v.SetDefault("render.link_prefix", "/w/")
	v.SetDefault("render.image_base_url", "")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.cleanup_interval", 15*time.Minute)

	v.SetDefault("build.output_dir", "./dist")
	v.SetDefault("build.workers", 4)
	v.SetDefault("build.clean", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
}

// Setup prepares v to read .wikimark.yml from the working directory (or
// configFile when set) and WIKIMARK_ environment overrides. A missing
// config file is not an error.
func Setup(v *viper.Viper, configFile string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && configFile == "" {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals and validates the configuration held by v. Defaults
// are applied for keys v has no value for.
func LoadFrom(v *viper.Viper) (*Config, error) {
	config, err := Decode(v)
	if err != nil {
		return nil, err
	}
	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Decode unmarshals the configuration held by v without validating it.
func Decode(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	return &config, nil
}

// Addr returns the listen address of the preview server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
