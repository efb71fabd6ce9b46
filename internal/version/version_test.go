package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withVars(t *testing.T, v, commit, built string) {
	t.Helper()
	oldV, oldC, oldB := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = v, commit, built
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldV, oldC, oldB })
}

func TestReleaseVersion(t *testing.T) {
	withVars(t, "v1.2.0", "0123456789abcdef", "2025-03-01T10:00:00Z")

	assert.Equal(t, "v1.2.0", GetVersion())
	assert.Equal(t, "v1.2.0 (0123456)", GetShortVersion())
	assert.True(t, IsRelease())
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), GetBuildTime())

	detailed := GetDetailedVersion()
	assert.Contains(t, detailed, "wikimark v1.2.0")
	assert.Contains(t, detailed, "commit:   0123456789abcdef")
	assert.Contains(t, detailed, "built:    2025-03-01T10:00:00Z")
}

func TestParseTime(t *testing.T) {
	assert.True(t, parseTime("unknown").IsZero())
	assert.True(t, parseTime("yesterday").IsZero())
	assert.Equal(t, 2024, parseTime("2024-05-06 07:08:09").Year())
	assert.Equal(t, 5, int(parseTime("2024-05-06T07:08:09").Month()))
}

func TestBuildInfo(t *testing.T) {
	withVars(t, "v0.1.0", "abcdef0123", "unknown")

	info := GetBuildInfo()
	assert.Equal(t, "v0.1.0", info.Version)
	assert.Equal(t, "abcdef0123", info.GitCommit)
	assert.True(t, info.BuildTime.IsZero())
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
