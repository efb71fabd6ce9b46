package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/wikimark/internal/errors"
	"github.com/conneroisu/wikimark/internal/registry"
)

func writePage(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newScanner(t *testing.T, dir string) *PageScanner {
	t.Helper()
	s, err := New(registry.NewPageRegistry(), Options{
		Dir:             dir,
		Extensions:      []string{".wiki"},
		ExcludePatterns: []string{"*.bak.wiki"},
		Workers:         2,
	}, nil)
	require.NoError(t, err)
	return s
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "홍길동.wiki", "== 개요 ==")
	writePage(t, dir, "활빈당/역사.wiki", "본문")
	writePage(t, dir, "notes.txt", "ignored")
	writePage(t, dir, "old.bak.wiki", "excluded")
	writePage(t, dir, ".git/x.wiki", "hidden dir")
	for i := 0; i < 10; i++ {
		writePage(t, dir, filepath.Join("bulk", string(rune('a'+i))+".wiki"), "x")
	}

	s := newScanner(t, dir)
	require.NoError(t, s.ScanDirectory(context.Background()))

	names := s.Registry().Names()
	assert.Len(t, names, 12)
	assert.Contains(t, names, "홍길동")
	assert.Contains(t, names, "활빈당/역사")
	assert.NotContains(t, names, "old.bak")

	page, ok := s.Registry().Get("홍길동")
	require.True(t, ok)
	assert.Equal(t, registry.HashContent([]byte("== 개요 ==")), page.Hash)
	assert.Equal(t, int64(len("== 개요 ==")), page.Size)
}

func TestScanDirectoryRemovesDeletedPages(t *testing.T) {
	dir := t.TempDir()
	a := writePage(t, dir, "a.wiki", "a")
	writePage(t, dir, "b.wiki", "b")

	s := newScanner(t, dir)
	require.NoError(t, s.ScanDirectory(context.Background()))
	require.Equal(t, 2, s.Registry().Count())

	require.NoError(t, os.Remove(a))
	require.NoError(t, s.ScanDirectory(context.Background()))
	assert.Equal(t, []string{"b"}, s.Registry().Names())
}

func TestScanDirectoryMissingRoot(t *testing.T) {
	s := newScanner(t, filepath.Join(t.TempDir(), "missing"))
	err := s.ScanDirectory(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasErrorCode(err, errors.ErrCodeFileNotFound))
}

func TestScanFileOutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := writePage(t, t.TempDir(), "evil.wiki", "x")

	s := newScanner(t, root)
	err := s.ScanFile(outside)
	require.Error(t, err)
	assert.True(t, errors.HasErrorCode(err, errors.ErrCodePathTraversal))

	err = s.ScanFile(filepath.Join(root, "..", "escape.wiki"))
	assert.Error(t, err)
}

func TestScanFileAndRemove(t *testing.T) {
	dir := t.TempDir()
	path := writePage(t, dir, "문서.wiki", "v1")

	s := newScanner(t, dir)
	events := s.Registry().Watch()
	require.NoError(t, s.ScanFile(path))
	assert.Equal(t, registry.EventTypeAdded, (<-events).Type)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	require.NoError(t, s.ScanFile(path))
	assert.Equal(t, registry.EventTypeUpdated, (<-events).Type)

	s.RemoveFile(path)
	assert.Equal(t, registry.EventTypeRemoved, (<-events).Type)
	assert.Equal(t, 0, s.Registry().Count())
}

func TestScanFileIgnoresNonPages(t *testing.T) {
	dir := t.TempDir()
	path := writePage(t, dir, "readme.md", "x")

	s := newScanner(t, dir)
	require.NoError(t, s.ScanFile(path))
	assert.Equal(t, 0, s.Registry().Count())
}

func TestIsPage(t *testing.T) {
	s := newScanner(t, t.TempDir())
	assert.True(t, s.IsPage("a/b.wiki"))
	assert.True(t, s.IsPage("a/B.WIKI"))
	assert.False(t, s.IsPage("a/b.md"))
	assert.False(t, s.IsPage("x.bak.wiki"))
}
