package config

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/highlight"
)

var hostnamePattern = regexp.MustCompile(
	`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`,
)

var (
	dangerousPathChars = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	dangerousHostChars = append(dangerousPathChars, "\\")
)

// ValidationResult holds the outcome of ValidateWithDetails. Errors make the
// configuration unusable; warnings are reported and ignored.
type ValidationResult struct {
	Errors   errors.ValidationErrorCollection
	Warnings []errors.ValidationError
}

// Valid reports whether no errors were found.
func (vr *ValidationResult) Valid() bool {
	return !vr.Errors.HasErrors()
}

func (vr *ValidationResult) warn(field string, value interface{}, message string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, errors.NewFieldValidationError(field, value, message, suggestions...))
}

// String returns a formatted list of all validation issues.
func (vr *ValidationResult) String() string {
	var b strings.Builder
	write := func(heading string, issues []errors.ValidationError) {
		if len(issues) == 0 {
			return
		}
		b.WriteString(heading + ":\n")
		for _, issue := range issues {
			fmt.Fprintf(&b, "  • %s\n", issue.Error())
			for _, s := range issue.Suggestions() {
				fmt.Fprintf(&b, "    - %s\n", s)
			}
		}
	}
	write("Validation errors", vr.Errors.Errors)
	write("Validation warnings", vr.Warnings)
	return b.String()
}

// Validate returns a config error describing every invalid field, or nil.
func Validate(config *Config) error {
	result := ValidateWithDetails(config)
	if result.Valid() {
		return nil
	}
	return result.Errors.ToWikiError()
}

// ValidateWithDetails checks every section and collects errors and warnings.
func ValidateWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{}
	validateServer(&config.Server, result)
	validatePages(&config.Pages, result)
	validateRender(&config.Render, result)
	validateCache(&config.Cache, result)
	validateBuild(config, result)
	validateLog(&config.Log, result)
	return result
}

func validateServer(server *ServerConfig, result *ValidationResult) {
	if server.Port < 0 || server.Port > 65535 {
		result.Errors.AddField("server.port", server.Port,
			fmt.Sprintf("port %d is not in valid range 0-65535", server.Port),
			"Use a port between 1024-65535 for non-privileged access",
			"Port 0 lets the system assign an available port",
		)
	} else if server.Port > 0 && server.Port < 1024 {
		result.warn("server.port", server.Port, "port below 1024 requires elevated privileges",
			"Consider using a port above 1024 for development",
		)
	}

	if server.Host != "" {
		if err := validateHostname(server.Host); err != nil {
			result.Errors.AddField("server.host", server.Host, err.Error(),
				"Use 'localhost' for local development",
				"Use '0.0.0.0' to bind to all interfaces",
			)
		}
	}

	if server.RenderRateLimit < 0 {
		result.Errors.AddField("server.render_rate_limit", server.RenderRateLimit,
			"render rate limit cannot be negative",
			"Use 0 to disable the limit",
		)
	}

	for _, origin := range server.AllowedOrigins {
		if origin == "*" {
			result.warn("server.allowed_origins", origin, "wildcard origin accepts live reload connections from any site")
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			result.Errors.AddField("server.allowed_origins", origin, "origin must be an http(s) scheme and host",
				"Example: http://localhost:3000",
			)
		}
	}
}

func validatePages(pages *PagesConfig, result *ValidationResult) {
	if pages.Dir == "" {
		result.Errors.AddField("pages.dir", pages.Dir, "pages directory cannot be empty",
			"Use './pages' or the directory holding your .wiki files",
		)
	} else if err := validatePath(pages.Dir); err != nil {
		result.Errors.AddField("pages.dir", pages.Dir, err.Error())
	}

	if len(pages.Extensions) == 0 {
		result.Errors.AddField("pages.extensions", pages.Extensions, "at least one page extension is required",
			"Use [\".wiki\"]",
		)
	}
	for _, ext := range pages.Extensions {
		if !strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\`) {
			result.Errors.AddField("pages.extensions", ext, "extension must start with '.' and contain no separators")
		}
	}

	for _, pattern := range pages.ExcludePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			result.Errors.AddField("pages.exclude_patterns", pattern, "malformed glob pattern")
		}
	}

	if pages.Index == "" {
		result.warn("pages.index", pages.Index, "no index page configured; / will list all pages")
	}
}

func validateRender(render *RenderConfig, result *ValidationResult) {
	if render.HighlightStyle != "" && !highlight.KnownStyle(render.HighlightStyle) {
		result.warn("render.highlight_style", render.HighlightStyle, "unknown highlight style; chroma's fallback is used",
			"Common styles: github, monokai, dracula, solarized-light",
		)
	}
	if render.LinkPrefix != "" && !strings.HasPrefix(render.LinkPrefix, "/") && !strings.Contains(render.LinkPrefix, "://") {
		result.Errors.AddField("render.link_prefix", render.LinkPrefix, "link prefix must be absolute or a full URL",
			"Use '/w/'",
		)
	}
	if render.ImageBaseURL != "" {
		if _, err := url.Parse(render.ImageBaseURL); err != nil {
			result.Errors.AddField("render.image_base_url", render.ImageBaseURL, "invalid URL: "+err.Error())
		}
	}
}

func validateCache(cache *CacheConfig, result *ValidationResult) {
	if cache.TTL < 0 {
		result.Errors.AddField("cache.ttl", cache.TTL.String(), "cache TTL cannot be negative")
	}
	if cache.CleanupInterval < 0 {
		result.Errors.AddField("cache.cleanup_interval", cache.CleanupInterval.String(), "cleanup interval cannot be negative")
	}
	if cache.Enabled && cache.TTL == 0 {
		result.warn("cache.ttl", "0s", "zero TTL keeps rendered pages until the source changes")
	}
}

func validateBuild(config *Config, result *ValidationResult) {
	build := &config.Build
	if build.OutputDir == "" {
		result.Errors.AddField("build.output_dir", build.OutputDir, "output directory cannot be empty",
			"Use './dist'",
		)
	} else if err := validatePath(build.OutputDir); err != nil {
		result.Errors.AddField("build.output_dir", build.OutputDir, err.Error())
	} else if config.Pages.Dir != "" && filepath.Clean(build.OutputDir) == filepath.Clean(config.Pages.Dir) {
		result.Errors.AddField("build.output_dir", build.OutputDir, "output directory must differ from pages directory")
	}

	if build.Workers < 0 {
		result.Errors.AddField("build.workers", build.Workers, "worker count cannot be negative",
			"Use 0 to select one worker per CPU",
		)
	} else if build.Workers > 64 {
		result.warn("build.workers", build.Workers, "more than 64 workers rarely helps")
	}
}

func validateLog(log *LogConfig, result *ValidationResult) {
	switch strings.ToLower(log.Level) {
	case "", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		result.Errors.AddField("log.level", log.Level, "unknown log level",
			"Use one of: debug, info, warn, error",
		)
	}
	switch strings.ToLower(log.Format) {
	case "", "text", "json":
	default:
		result.Errors.AddField("log.format", log.Format, "unknown log format", "Use 'text' or 'json'")
	}
	if log.Dir != "" {
		if err := validatePath(log.Dir); err != nil {
			result.Errors.AddField("log.dir", log.Dir, err.Error())
		}
	}
	if log.MaxSizeMB < 0 || log.MaxBackups < 0 {
		result.Errors.AddField("log.max_size_mb", log.MaxSizeMB, "log rotation limits cannot be negative")
	}
}

// validatePath rejects traversal and shell metacharacters.
func validatePath(path string) error {
	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}
	for _, char := range dangerousPathChars {
		if strings.Contains(cleaned, char) {
			return fmt.Errorf("path contains dangerous character %q", char)
		}
	}
	return nil
}

func validateHostname(host string) error {
	for _, char := range dangerousHostChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}
	if net.ParseIP(host) != nil || host == "localhost" {
		return nil
	}
	if !hostnamePattern.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}
	return nil
}
