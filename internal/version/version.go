// Package version reports the build identity of the wikimark binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// BuildInfo is the payload of the version command and the /health route.
type BuildInfo struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"git_commit" yaml:"git_commit"`
	BuildTime time.Time `json:"build_time" yaml:"build_time"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform" yaml:"platform"`
	Dirty     bool      `json:"dirty,omitempty" yaml:"dirty,omitempty"`
}

// Set at link time with -ldflags "-X github.com/conneroisu/wikimark/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// GetBuildInfo collects the link-time values, falling back to the VCS
// settings embedded by the Go toolchain.
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   GetVersion(),
		GitCommit: GetGitCommit(),
		BuildTime: GetBuildTime(),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Dirty:     IsDirty(),
	}
}

// GetVersion returns the release version, or dev-<short commit> for
// untagged builds.
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	if rev := vcsSetting(info, "vcs.revision"); len(rev) >= 7 {
		return "dev-" + rev[:7]
	}
	return "dev"
}

// GetGitCommit returns the full commit hash or "unknown".
func GetGitCommit() string {
	if GitCommit != "" && GitCommit != "unknown" {
		return GitCommit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if rev := vcsSetting(info, "vcs.revision"); rev != "" {
			return rev
		}
	}
	return "unknown"
}

// GetBuildTime parses BuildTime, returning the zero time when it is unset
// or malformed.
func GetBuildTime() time.Time {
	return parseTime(BuildTime)
}

// GetShortVersion is the one-line form used in logs and the server banner.
func GetShortVersion() string {
	v := GetVersion()
	commit := GetGitCommit()
	if commit == "unknown" || len(commit) < 7 || strings.HasPrefix(v, "dev-") {
		return v
	}
	if v == "dev" {
		return "dev-" + commit[:7]
	}
	return fmt.Sprintf("%s (%s)", v, commit[:7])
}

// GetDetailedVersion renders every known field, one per line.
func GetDetailedVersion() string {
	info := GetBuildInfo()
	lines := []string{"wikimark " + info.Version}
	if info.GitCommit != "unknown" {
		commit := "commit:   " + info.GitCommit
		if info.Dirty {
			commit += " (dirty)"
		}
		lines = append(lines, commit)
	}
	if !info.BuildTime.IsZero() {
		lines = append(lines, "built:    "+info.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines,
		"go:       "+info.GoVersion,
		"platform: "+info.Platform,
	)
	return strings.Join(lines, "\n")
}

// IsRelease reports whether the binary carries a tagged version.
func IsRelease() bool {
	v := GetVersion()
	return v != "dev" && !strings.HasPrefix(v, "dev-")
}

// IsDirty reports whether the working tree had local modifications at
// build time.
func IsDirty() bool {
	if info, ok := debug.ReadBuildInfo(); ok {
		return vcsSetting(info, "vcs.modified") == "true"
	}
	return false
}

func vcsSetting(info *debug.BuildInfo, key string) string {
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

func parseTime(value string) time.Time {
	if value == "" || value == "unknown" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
