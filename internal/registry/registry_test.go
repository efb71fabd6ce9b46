package registry

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/wikimark/internal/errors"
)

func TestNewPageRegistry(t *testing.T) {
	registry := NewPageRegistry()

	assert.NotNil(t, registry)
	assert.Equal(t, 0, registry.Count())
	assert.Empty(t, registry.GetAll())
}

func TestPageRegistry_Register(t *testing.T) {
	registry := NewPageRegistry()
	events := registry.Watch()

	page := &PageInfo{Name: "홍길동", FilePath: "pages/홍길동.wiki", Hash: HashContent([]byte("a"))}
	assert.True(t, registry.Register(page))

	retrieved, exists := registry.Get("홍길동")
	assert.True(t, exists)
	assert.Equal(t, page, retrieved)

	event := <-events
	assert.Equal(t, EventTypeAdded, event.Type)
	assert.Equal(t, "홍길동", event.Page.Name)

	// Same content is not a change.
	same := *page
	assert.False(t, registry.Register(&same))
	assert.Empty(t, events)

	updated := &PageInfo{Name: "홍길동", FilePath: "pages/홍길동.wiki", Hash: HashContent([]byte("b"))}
	assert.True(t, registry.Register(updated))
	event = <-events
	assert.Equal(t, EventTypeUpdated, event.Type)
	assert.Equal(t, "updated", event.Type.String())
}

func TestPageRegistry_Remove(t *testing.T) {
	registry := NewPageRegistry()
	registry.Register(&PageInfo{Name: "a", FilePath: "a.wiki"})
	events := registry.Watch()

	registry.Remove("missing")
	assert.Empty(t, events)

	registry.Remove("a")
	_, exists := registry.Get("a")
	assert.False(t, exists)

	event := <-events
	assert.Equal(t, EventTypeRemoved, event.Type)
	assert.Equal(t, "a.wiki", event.Page.FilePath)
}

func TestPageRegistry_NamesSorted(t *testing.T) {
	registry := NewPageRegistry()
	for _, name := range []string{"다", "가", "b", "a/c"} {
		registry.Register(&PageInfo{Name: name, FilePath: name + ".wiki"})
	}
	assert.Equal(t, []string{"a/c", "b", "가", "다"}, registry.Names())

	page, ok := registry.FindByPath("b.wiki")
	require.True(t, ok)
	assert.Equal(t, "b", page.Name)
}

func TestPageRegistry_UnWatch(t *testing.T) {
	registry := NewPageRegistry()
	ch := registry.Watch()
	registry.UnWatch(ch)

	_, open := <-ch
	assert.False(t, open)

	// No panic once the watcher is gone.
	registry.Register(&PageInfo{Name: "x"})
}

func TestPageRegistry_FullWatcherDoesNotBlock(t *testing.T) {
	registry := NewPageRegistry()
	registry.Watch()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			registry.Register(&PageInfo{Name: "p", Hash: HashContent([]byte{byte(i)})})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Register blocked on a full watcher")
	}
}

func TestPageRegistry_Concurrent(t *testing.T) {
	registry := NewPageRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i%26))
			registry.Register(&PageInfo{Name: name, Hash: HashContent([]byte{byte(i)})})
			registry.Get(name)
			registry.GetAll()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 26, registry.Count())
}

func TestHashContent(t *testing.T) {
	a := HashContent([]byte("== 개요 =="))
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashContent([]byte("== 개요 ==")))
	assert.NotEqual(t, a, HashContent([]byte("== 역사 ==")))
}

func TestValidatePageName(t *testing.T) {
	valid := []string{"홍길동", "분류:인물", "활빈당/역사", "Hello World", "C++"}
	for _, name := range valid {
		assert.NoError(t, ValidatePageName(name), name)
	}

	invalid := []string{"", "  ", "../etc/passwd", "/abs", "a/", "a//b", ".hidden", "a/./b", "a\\b", "a<b", "tab\tname"}
	for _, name := range invalid {
		err := ValidatePageName(name)
		assert.Error(t, err, name)
		assert.True(t, errors.HasErrorCode(err, errors.ErrCodeInvalidPageName), name)
	}
}

func TestPageName(t *testing.T) {
	dir := filepath.Join("wiki", "pages")

	name, err := PageName(dir, filepath.Join(dir, "홍길동.wiki"))
	require.NoError(t, err)
	assert.Equal(t, "홍길동", name)

	name, err = PageName(dir, filepath.Join(dir, "활빈당", "역사.wiki"))
	require.NoError(t, err)
	assert.Equal(t, "활빈당/역사", name)

	_, err = PageName(dir, filepath.Join("wiki", "other.wiki"))
	assert.Error(t, err)
}
