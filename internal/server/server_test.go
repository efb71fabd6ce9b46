package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/wikimark/internal/config"
	"github.com/conneroisu/wikimark/internal/watcher"
	wsmanager "github.com/conneroisu/wikimark/internal/websocket"
	"github.com/conneroisu/wikimark/internal/wiki"
)

type testEnv struct {
	server *PreviewServer
	wiki   *wiki.Wiki
	dir    string
	http   *httptest.Server
}

func newTestEnv(t *testing.T, pages map[string]string, mutate func(*config.Config)) *testEnv {
	t.Helper()
	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.Pages.Dir = dir
	cfg.Pages.Extensions = []string{".wiki"}
	if mutate != nil {
		mutate(cfg)
	}
	for name, content := range pages {
		path := filepath.Join(dir, name+".wiki")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	w, err := wiki.New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, w.Load(context.Background()))

	s, err := New(cfg, w, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Shutdown(context.Background())
	})
	return &testEnv{server: s, wiki: w, dir: dir, http: ts}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(e.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) post(t *testing.T, path, contentType, body string, header http.Header) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestHandlePage(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"홍길동": "== 개요 ==\n'''홍길동'''은 [[활빈당]]의 두목이다.\n",
	}, nil)

	resp, body := env.get(t, "/w/"+url.PathEscape("홍길동"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "default-src 'self'")

	assert.Contains(t, body, `data-page="홍길동"`)
	assert.Contains(t, body, `<strong>홍길동</strong>`)
	assert.Contains(t, body, `href="/static/highlight.css"`)
	assert.Contains(t, body, "new WebSocket")
}

func TestHandlePageNested(t *testing.T) {
	env := newTestEnv(t, map[string]string{"역사/조선": "본문"}, nil)

	resp, body := env.get(t, "/w/"+url.PathEscape("역사")+"/"+url.PathEscape("조선"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `data-page="역사/조선"`)
}

func TestHandlePageErrors(t *testing.T) {
	env := newTestEnv(t, map[string]string{"활빈당": "본문"}, nil)

	resp, body := env.get(t, "/w/"+url.PathEscape("활빈"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "wm-not-found")
	assert.Contains(t, body, "Did you mean &#39;활빈당&#39;?")

	resp, _ = env.get(t, "/w/.hidden")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleIndex(t *testing.T) {
	t.Run("page list", func(t *testing.T) {
		env := newTestEnv(t, map[string]string{"b": "x", "a": "y"}, nil)
		resp, body := env.get(t, "/")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `class="wm-page-index"`)
		assert.Less(t, strings.Index(body, `href="/w/a"`), strings.Index(body, `href="/w/b"`))
	})

	t.Run("index page", func(t *testing.T) {
		env := newTestEnv(t, map[string]string{"대문": "어서 오세요"}, nil)
		_, body := env.get(t, "/")
		assert.Contains(t, body, "어서 오세요")
		assert.Contains(t, body, `data-page="대문"`)
	})

	t.Run("unknown routes", func(t *testing.T) {
		env := newTestEnv(t, nil, nil)
		resp, _ := env.get(t, "/nope")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestErrorOverlay(t *testing.T) {
	pages := map[string]string{"bad": "[[카드그리드: items=[{bad json]]\n"}

	env := newTestEnv(t, pages, nil)
	_, body := env.get(t, "/w/bad")
	assert.Contains(t, body, "wikimark-error-overlay")

	env = newTestEnv(t, pages, func(c *config.Config) { c.Server.ErrorOverlay = false })
	_, body = env.get(t, "/w/bad")
	assert.NotContains(t, body, "wikimark-error-overlay")
}

func TestRenderAPI(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	t.Run("json", func(t *testing.T) {
		payload := `{"page":"테스트","source":"== 제목 ==\n본문[* 각주]\n[[분류:시험]]\n[[카드그리드: items=[{bad json]]\n"}`
		resp, body := env.post(t, "/api/render", "application/json", payload, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)

		var out RenderResponse
		require.NoError(t, json.Unmarshal([]byte(body), &out))
		assert.Equal(t, "테스트", out.Page)
		require.Len(t, out.TOC, 1)
		assert.Equal(t, "제목", out.TOC[0].Title)
		require.Len(t, out.Footnotes, 1)
		assert.Equal(t, "각주", out.Footnotes[0].Text)
		assert.Equal(t, []string{"시험"}, out.Categories)
		require.NotEmpty(t, out.Diagnostics)
		assert.Equal(t, "error", out.Diagnostics[0].Severity)
		assert.Equal(t, 4, out.Diagnostics[0].Line)
	})

	t.Run("plain text", func(t *testing.T) {
		resp, body := env.post(t, "/api/render", "text/plain; charset=utf-8", "''기울임''", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out RenderResponse
		require.NoError(t, json.Unmarshal([]byte(body), &out))
		assert.Equal(t, previewPage, out.Page)
		assert.Contains(t, out.HTML, "<em>기울임</em>")
		assert.Empty(t, out.TOC)
		assert.NotNil(t, out.Diagnostics)
	})

	t.Run("bad json", func(t *testing.T) {
		resp, _ := env.post(t, "/api/render", "application/json", "{", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("foreign origin", func(t *testing.T) {
		resp, _ := env.post(t, "/api/render", "text/plain", "x", http.Header{"Origin": {"https://evil.example"}})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, _ := env.get(t, "/api/render")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestRenderAPIRateLimit(t *testing.T) {
	env := newTestEnv(t, nil, func(c *config.Config) { c.Server.RenderRateLimit = 2 })

	for i := 0; i < 2; i++ {
		resp, _ := env.post(t, "/api/render", "text/plain", "x", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := env.post(t, "/api/render", "text/plain", "x", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestPagesAPI(t *testing.T) {
	env := newTestEnv(t, map[string]string{"나": "x", "가 나": "y"}, nil)

	resp, body := env.get(t, "/api/pages")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pages []PageJSON
	require.NoError(t, json.Unmarshal([]byte(body), &pages))
	require.Len(t, pages, 2)
	assert.Equal(t, "가 나", pages[0].Name)
	assert.Equal(t, "/w/"+url.PathEscape("가 나"), pages[0].URL)
	assert.NotEmpty(t, pages[0].Hash)
}

func TestHighlightCSS(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	resp, body := env.get(t, "/static/highlight.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/css; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, body)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, map[string]string{"a": "x"}, nil)
	resp, body := env.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "healthy", health["status"])
	checks := health["checks"].(map[string]interface{})
	assert.Equal(t, float64(1), checks["pages"].(map[string]interface{})["count"])
	assert.Contains(t, checks, "cache")
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, nil, func(c *config.Config) {
		c.Server.AllowedOrigins = []string{"https://docs.example.com"}
	})

	req, err := http.NewRequest(http.MethodOptions, env.http.URL+"/api/render", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://docs.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://docs.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, _ = env.post(t, "/api/render", "text/plain", "x", http.Header{"Origin": {"https://docs.example.com"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLiveReloadDisabled(t *testing.T) {
	env := newTestEnv(t, map[string]string{"a": "x"}, func(c *config.Config) { c.Server.LiveReload = false })
	assert.Nil(t, env.server.watcher)

	resp, body := env.get(t, "/w/a")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "new WebSocket")

	resp, _ = env.get(t, "/ws")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleFileChange(t *testing.T) {
	env := newTestEnv(t, map[string]string{"a": "v1"}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(env.http.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()
	require.Eventually(t, func() bool {
		return env.server.wsManager.GetConnectedClients() == 1
	}, 2*time.Second, 10*time.Millisecond)

	read := func() wsmanager.UpdateMessage {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var msg wsmanager.UpdateMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	path := filepath.Join(env.dir, "a.wiki")
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	require.NoError(t, env.server.handleFileChange(ctx, []watcher.ChangeEvent{{Type: watcher.EventTypeModified, Path: path}}))
	msg := read()
	assert.Equal(t, wsmanager.MessagePageUpdated, msg.Type)
	assert.Equal(t, "a", msg.Target)

	added := filepath.Join(env.dir, "b.wiki")
	require.NoError(t, os.WriteFile(added, []byte("new"), 0o644))
	require.NoError(t, env.server.handleFileChange(ctx, []watcher.ChangeEvent{{Type: watcher.EventTypeCreated, Path: added}}))
	assert.Equal(t, wsmanager.MessageFullReload, read().Type)
	assert.Equal(t, 2, env.wiki.Registry().Count())
}
