package services

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/wikimark/internal/config"
)

func loadProjectConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	v := viper.New()
	require.NoError(t, config.Setup(v, filepath.Join(dir, ConfigFileName)))
	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)
	cfg.Pages.Dir = filepath.Join(dir, cfg.Pages.Dir)
	cfg.Build.OutputDir = filepath.Join(dir, cfg.Build.OutputDir)
	return cfg
}

func TestInitProject(t *testing.T) {
	dir := t.TempDir()

	result, err := NewInitService().InitProject(InitOptions{ProjectDir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".wikimark.yml"), result.ConfigPath)
	assert.Len(t, result.Created, 3)
	assert.Empty(t, result.Skipped)
	assert.FileExists(t, filepath.Join(dir, "pages", "대문.wiki"))
	assert.FileExists(t, filepath.Join(dir, "pages", "문법 도움말.wiki"))

	cfg := loadProjectConfig(t, dir)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "대문", cfg.Pages.Index)
}

func TestInitProjectKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 9000\n"), 0o644))

	result, err := NewInitService().InitProject(InitOptions{ProjectDir: dir, Minimal: true})
	require.NoError(t, err)
	assert.Equal(t, []string{configPath}, result.Skipped)
	assert.Empty(t, result.Created)
	assert.NoFileExists(t, filepath.Join(dir, "pages", "대문.wiki"))
	assert.DirExists(t, filepath.Join(dir, "pages"))

	result, err = NewInitService().InitProject(InitOptions{ProjectDir: dir, Minimal: true, Force: true})
	require.NoError(t, err)
	assert.Equal(t, []string{configPath}, result.Created)
	assert.Equal(t, 8080, loadProjectConfig(t, dir).Server.Port)
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	_, err := NewInitService().InitProject(InitOptions{ProjectDir: dir})
	require.NoError(t, err)
	cfg := loadProjectConfig(t, dir)

	svc := NewBuildService(cfg, nil)

	dry, err := svc.Build(context.Background(), BuildOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"대문", "문법 도움말"}, dry.Pages)
	assert.NoDirExists(t, cfg.Build.OutputDir)

	result, err := svc.Build(context.Background(), BuildOptions{Workers: 2})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.PageCount)
	assert.Zero(t, result.Failed)
	assert.FileExists(t, filepath.Join(cfg.Build.OutputDir, "index.html"))
	assert.FileExists(t, filepath.Join(cfg.Build.OutputDir, "w", "문법 도움말", "index.html"))
	assert.FileExists(t, filepath.Join(cfg.Build.OutputDir, "static", "highlight.css"))

	other := filepath.Join(dir, "other")
	result, err = svc.Build(context.Background(), BuildOptions{Output: other})
	require.NoError(t, err)
	assert.Equal(t, other, result.OutputDir)
	assert.FileExists(t, filepath.Join(other, "pages.json"))
}

func TestServerInfo(t *testing.T) {
	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)

	info := NewServeService(cfg, nil).GetServerInfo()
	assert.Equal(t, "localhost", info.Host)
	assert.Equal(t, 8080, info.Port)
	assert.Equal(t, "http://localhost:8080", info.ServerURL)
	assert.True(t, info.LiveReload)
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)
	cfg.Pages.Dir = t.TempDir()
	cfg.Server.Port = 0
	cfg.Server.Host = "127.0.0.1"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServeService(cfg, nil).Serve(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServePortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)
	cfg.Pages.Dir = t.TempDir()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port
	cfg.Server.LiveReload = false

	err = NewServeService(cfg, nil).Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to start server")
}
