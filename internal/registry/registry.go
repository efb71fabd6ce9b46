// Package registry tracks the wiki pages discovered on disk and notifies
// watchers when pages are added, updated or removed.
package registry

import (
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// PageRegistry manages all discovered pages.
type PageRegistry struct {
	pages    map[string]*PageInfo
	mutex    sync.RWMutex
	watchers []chan PageEvent
}

// PageInfo holds metadata about a wiki page source file.
type PageInfo struct {
	Name     string
	FilePath string
	Size     int64
	LastMod  time.Time
	Hash     string
}

// PageEvent represents a change in the page registry.
type PageEvent struct {
	Type      EventType
	Page      *PageInfo
	Timestamp time.Time
}

// EventType represents the type of page event.
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

func (t EventType) String() string {
	switch t {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	case EventTypeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// HashContent returns the hex blake3 digest of content.
func HashContent(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// NewPageRegistry creates an empty registry.
func NewPageRegistry() *PageRegistry {
	return &PageRegistry{
		pages:    make(map[string]*PageInfo),
		watchers: make([]chan PageEvent, 0),
	}
}

// Register adds or updates a page. It reports whether anything changed; a
// page registered again with the same hash emits no event.
func (r *PageRegistry) Register(page *PageInfo) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := EventTypeAdded
	if existing, exists := r.pages[page.Name]; exists {
		if existing.Hash == page.Hash && existing.FilePath == page.FilePath {
			return false
		}
		eventType = EventTypeUpdated
	}

	r.pages[page.Name] = page
	r.notify(PageEvent{Type: eventType, Page: page, Timestamp: time.Now()})
	return true
}

// Get retrieves a page by name.
func (r *PageRegistry) Get(name string) (*PageInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	page, exists := r.pages[name]
	return page, exists
}

// FindByPath returns the page whose source file is path.
func (r *PageRegistry) FindByPath(path string) (*PageInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, page := range r.pages {
		if page.FilePath == path {
			return page, true
		}
	}
	return nil, false
}

// GetAll returns all registered pages sorted by name.
func (r *PageRegistry) GetAll() []*PageInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*PageInfo, 0, len(r.pages))
	for _, page := range r.pages {
		result = append(result, page)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Names returns the sorted page names.
func (r *PageRegistry) Names() []string {
	pages := r.GetAll()
	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = p.Name
	}
	return names
}

// Remove removes a page from the registry.
func (r *PageRegistry) Remove(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	page, exists := r.pages[name]
	if !exists {
		return
	}

	delete(r.pages, name)
	r.notify(PageEvent{Type: EventTypeRemoved, Page: page, Timestamp: time.Now()})
}

// notify must be called with the write lock held.
func (r *PageRegistry) notify(event PageEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// Watch returns a channel that receives page events.
func (r *PageRegistry) Watch() <-chan PageEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan PageEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it.
func (r *PageRegistry) UnWatch(ch <-chan PageEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of registered pages.
func (r *PageRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.pages)
}
