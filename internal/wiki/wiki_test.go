package wiki

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/wikimark/internal/config"
	"github.com/conneroisu/wikimark/internal/errors"
)

const samplePage = "== 개요 ==\n" +
	"'''홍길동'''은 [[활빈당]]의 두목이다.[* 허균의 소설.]\n\n" +
	"```go\nfmt.Println(\"hi\")\n```\n"

func newTestWiki(t *testing.T, mutate func(c *config.Config)) (*Wiki, string) {
	t.Helper()
	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.Pages.Dir = dir
	cfg.Pages.Extensions = []string{".wiki"}
	if mutate != nil {
		mutate(cfg)
	}

	w, err := New(cfg, nil)
	require.NoError(t, err)
	return w, dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRenderPage(t *testing.T) {
	w, dir := newTestWiki(t, nil)
	writeFile(t, filepath.Join(dir, "홍길동.wiki"), samplePage)
	require.NoError(t, w.Load(context.Background()))

	entry, err := w.Render(context.Background(), "홍길동")
	require.NoError(t, err)

	assert.Equal(t, "홍길동", entry.Page)
	assert.Contains(t, entry.HTML, `<strong>홍길동</strong>`)
	assert.Contains(t, entry.HTML, `href="/w/%ED%99%9C%EB%B9%88%EB%8B%B9"`)
	assert.Contains(t, entry.HTML, `data-highlighted="true"`)
	require.Len(t, entry.Document.Footnotes, 1)
	assert.Equal(t, "허균의 소설.", entry.Document.Footnotes[0].Text)
}

func TestRenderUsesCache(t *testing.T) {
	w, dir := newTestWiki(t, nil)
	writeFile(t, filepath.Join(dir, "a.wiki"), "본문")
	require.NoError(t, w.Load(context.Background()))

	first, err := w.Render(context.Background(), "a")
	require.NoError(t, err)
	second, err := w.Render(context.Background(), "a")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), w.Cache().Stats().Hits)
}

func TestRenderWithoutCache(t *testing.T) {
	w, dir := newTestWiki(t, func(c *config.Config) { c.Cache.Enabled = false })
	writeFile(t, filepath.Join(dir, "a.wiki"), "본문")
	require.NoError(t, w.Load(context.Background()))

	assert.Nil(t, w.Cache())
	first, err := w.Render(context.Background(), "a")
	require.NoError(t, err)
	second, err := w.Render(context.Background(), "a")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, first.HTML, second.HTML)
}

func TestRenderMissingPage(t *testing.T) {
	w, _ := newTestWiki(t, nil)
	require.NoError(t, w.Load(context.Background()))

	_, err := w.Render(context.Background(), "없는문서")
	require.Error(t, err)
	assert.True(t, errors.HasErrorCode(err, errors.ErrCodePageNotFound))

	_, err = w.Render(context.Background(), "../secret")
	require.Error(t, err)
	assert.True(t, errors.HasErrorCode(err, errors.ErrCodeInvalidPageName))
}

func TestRenderCollectsDiagnostics(t *testing.T) {
	w, dir := newTestWiki(t, nil)
	writeFile(t, filepath.Join(dir, "bad.wiki"), "[[카드그리드: items=[{bad json]]\n")
	require.NoError(t, w.Load(context.Background()))

	_, err := w.Render(context.Background(), "bad")
	require.NoError(t, err)
	assert.True(t, w.Errors().HasErrors())
	assert.Equal(t, []string{"bad"}, w.Errors().Pages())
}

func TestCompileWarnsAboutUnknownFenceLanguage(t *testing.T) {
	w, _ := newTestWiki(t, nil)

	doc := w.Compile(context.Background(), "demo", "```python\nprint(1)\n```\n\n```no-such-language-xyz\n```")
	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, 4, doc.Diagnostics[0].Line)
	assert.Contains(t, doc.Diagnostics[0].Message, "no-such-language-xyz")
}

func TestRefresh(t *testing.T) {
	w, dir := newTestWiki(t, nil)
	path := filepath.Join(dir, "a.wiki")
	writeFile(t, path, "v1")
	require.NoError(t, w.Load(context.Background()))

	entry, err := w.Render(context.Background(), "a")
	require.NoError(t, err)
	assert.Contains(t, entry.HTML, "v1")

	writeFile(t, path, "v2")
	name, err := w.Refresh(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "a", name)

	entry, err = w.Render(context.Background(), "a")
	require.NoError(t, err)
	assert.Contains(t, entry.HTML, "v2")

	require.NoError(t, os.Remove(path))
	name, err = w.Refresh(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "a", name)
	assert.Equal(t, 0, w.Registry().Count())

	name, err = w.Refresh(context.Background(), filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestResolveImage(t *testing.T) {
	w, _ := newTestWiki(t, func(c *config.Config) { c.Render.ImageBaseURL = "https://cdn.example.com/" })
	assert.Equal(t, "https://cdn.example.com/a%20b.png", w.resolveImage("a b.png"))
	assert.Equal(t, "https://x.org/i.png", w.resolveImage("https://x.org/i.png"))
}
