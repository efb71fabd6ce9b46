//go:build integration
// +build integration

package integration_tests

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/wikimark/internal/build"
	"github.com/conneroisu/wikimark/internal/logging"
	"github.com/conneroisu/wikimark/internal/services"
	ws "github.com/conneroisu/wikimark/internal/websocket"
)

var samplePages = map[string]string{
	"대문": `[목차]
== 소개 ==
'''wikimark''' 예제[* 각주]
 * [[역사/고대]]
 * [[없는 문서]]

[[분류:예제]]
`,
	"역사/고대": "== 고대 ==\n```go\nfmt.Println(1)\n```\n",
}

func TestIntegration_InitBuildWorkflow(t *testing.T) {
	project := newTestProject(t, samplePages)
	ctx := context.Background()

	svc := services.NewBuildService(project.Config, logging.Discard())

	dry, err := svc.Build(ctx, services.BuildOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"대문", "역사/고대"}, dry.Pages)
	_, statErr := os.Stat(dry.OutputDir)
	assert.True(t, os.IsNotExist(statErr))

	result, err := svc.Build(ctx, services.BuildOptions{Clean: true})
	require.NoError(t, err)
	require.True(t, result.Success, result.Errors)
	assert.Equal(t, 2, result.PageCount)

	index, err := os.ReadFile(filepath.Join(result.OutputDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "<strong>wikimark</strong>")
	assert.Contains(t, string(index), "예제")

	page, err := os.ReadFile(filepath.Join(result.OutputDir, "w", "역사", "고대", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "chroma")

	css, err := os.ReadFile(filepath.Join(result.OutputDir, filepath.FromSlash(build.HighlightCSSPath)))
	require.NoError(t, err)
	assert.NotEmpty(t, css)

	manifest, err := os.ReadFile(filepath.Join(result.OutputDir, "pages.json"))
	require.NoError(t, err)
	var entries []build.ManifestEntry
	require.NoError(t, json.Unmarshal(manifest, &entries))
	assert.Len(t, entries, 2)

	// A second build renders from the cache-warm state without failures.
	again, err := svc.Build(ctx, services.BuildOptions{})
	require.NoError(t, err)
	assert.True(t, again.Success)
}

func TestIntegration_ServeWorkflow(t *testing.T) {
	project := newTestProject(t, samplePages)
	ctx, cancel := context.WithCancel(context.Background())

	svc := services.NewServeService(project.Config, logging.Discard())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	base := project.BaseURL()
	require.NoError(t, WaitForServerReadiness(ctx, base, nil))

	get := func(path string) (int, string) {
		resp, err := http.Get(base + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	status, body := get("/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<strong>wikimark</strong>")
	assert.Contains(t, body, "/ws")

	status, body = get("/w/역사/고대")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "고대")

	status, _ = get("/w/없는%20문서")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = get("/api/pages")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "역사/고대")

	t.Run("live reload", func(t *testing.T) {
		dialCtx, dialCancel := context.WithTimeout(ctx, 5*time.Second)
		defer dialCancel()
		conn, _, err := websocket.Dial(dialCtx, "ws"+strings.TrimPrefix(base, "http")+"/ws", nil)
		require.NoError(t, err)
		defer conn.Close(websocket.StatusNormalClosure, "")

		project.WritePage(t, "역사/고대", "== 고대 ==\n바뀐 본문\n")

		readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
		defer readCancel()
		for {
			_, data, err := conn.Read(readCtx)
			require.NoError(t, err)
			var msg ws.UpdateMessage
			require.NoError(t, json.Unmarshal(data, &msg))
			if msg.Type == ws.MessagePageUpdated && msg.Target == "역사/고대" {
				break
			}
		}

		status, body := get("/w/역사/고대")
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "바뀐 본문")
	})
}
