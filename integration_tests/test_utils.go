//go:build integration
// +build integration

package integration_tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/wikimark/internal/config"
	"github.com/conneroisu/wikimark/internal/services"
)

// TestServerConfig controls how long tests wait for a server.
type TestServerConfig struct {
	ReadinessTimeout    time.Duration
	HealthCheckInterval time.Duration
}

// DefaultTestConfig returns a default test configuration
func DefaultTestConfig() *TestServerConfig {
	return &TestServerConfig{
		ReadinessTimeout:    10 * time.Second,
		HealthCheckInterval: 50 * time.Millisecond,
	}
}

// HealthResponse represents the structure of health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Checks    map[string]interface{} `json:"checks"`
}

// WaitForServerReadiness polls /health until the server reports healthy.
func WaitForServerReadiness(ctx context.Context, baseURL string, cfg *TestServerConfig) error {
	if cfg == nil {
		cfg = DefaultTestConfig()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.ReadinessTimeout)
	defer cancel()

	ticker := time.NewTicker(cfg.HealthCheckInterval)
	defer ticker.Stop()

	client := &http.Client{Timeout: time.Second}
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("server at %s not ready after %v", baseURL, cfg.ReadinessTimeout)
		case <-ticker.C:
			if healthy, err := checkServerHealth(client, baseURL); err == nil && healthy {
				return nil
			}
		}
	}
}

func checkServerHealth(client *http.Client, baseURL string) (bool, error) {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false, err
	}
	return health.Status == "healthy", nil
}

// freePort returns a TCP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// testProject is an initialized wiki project in a temporary directory that
// is also the working directory.
type testProject struct {
	Dir      string
	PagesDir string
	Config   *config.Config
}

// newTestProject runs init in a fresh directory, writes pages and loads
// the resulting configuration.
func newTestProject(t *testing.T, pages map[string]string) *testProject {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	result, err := services.NewInitService().InitProject(services.InitOptions{ProjectDir: dir, Minimal: true})
	require.NoError(t, err)

	p := &testProject{Dir: dir, PagesDir: result.PagesDir}
	for name, content := range pages {
		p.WritePage(t, name, content)
	}

	v := viper.New()
	require.NoError(t, config.Setup(v, result.ConfigPath))
	p.Config, err = config.LoadFrom(v)
	require.NoError(t, err)
	p.Config.Server.Host = "127.0.0.1"
	p.Config.Server.Port = freePort(t)
	p.Config.Log.Level = "error"
	return p
}

// PagePath returns the source path of page name.
func (p *testProject) PagePath(name string) string {
	return filepath.Join(p.PagesDir, filepath.FromSlash(name)+".wiki")
}

// WritePage creates or replaces page name.
func (p *testProject) WritePage(t *testing.T, name, content string) string {
	t.Helper()
	path := p.PagePath(name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// BaseURL returns the preview server URL for the project.
func (p *testProject) BaseURL() string {
	return fmt.Sprintf("http://%s", p.Config.Addr())
}
