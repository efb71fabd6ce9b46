// Package cache memoizes compiled and rendered pages keyed by a blake3 digest
// of their source, so unchanged pages are never compiled twice.
package cache

import (
	"encoding/hex"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/zeebo/blake3"

	"github.com/conneroisu/wikimark/internal/types"
)

// Entry is one rendered page.
type Entry struct {
	Page     string
	Hash     string
	Document *types.Document
	HTML     string
	Created  time.Time
}

// RenderCache is safe for concurrent use.
type RenderCache struct {
	store  *gocache.Cache
	hits   int64
	misses int64
}

// Stats is a point-in-time view of cache usage.
type Stats struct {
	Entries int     `json:"entries" yaml:"entries"`
	Hits    int64   `json:"hits" yaml:"hits"`
	Misses  int64   `json:"misses" yaml:"misses"`
	HitRate float64 `json:"hit_rate" yaml:"hit_rate"`
}

// New creates a cache whose entries expire after ttl and are purged every
// cleanup interval. A zero ttl keeps entries until they are invalidated.
func New(ttl, cleanup time.Duration) *RenderCache {
	if ttl == 0 {
		ttl = gocache.NoExpiration
	}
	return &RenderCache{store: gocache.New(ttl, cleanup)}
}

// Hash returns the hex blake3 digest of a page source.
func Hash(source string) string {
	sum := blake3.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Key builds the cache key of page with the given source digest. variant
// separates renderings of the same source under different options.
func Key(page, hash, variant string) string {
	return page + "\x00" + variant + "\x00" + hash
}

// Get returns the entry stored under key.
func (c *RenderCache) Get(key string) (*Entry, bool) {
	value, found := c.store.Get(key)
	if !found {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	entry, ok := value.(*Entry)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return entry, true
}

// Set stores entry under key with the default expiration.
func (c *RenderCache) Set(key string, entry *Entry) {
	if entry.Created.IsZero() {
		entry.Created = time.Now()
	}
	c.store.Set(key, entry, gocache.DefaultExpiration)
}

// GetOrCompute returns the cached entry for key or stores the result of
// compute. Errors are not cached.
func (c *RenderCache) GetOrCompute(key string, compute func() (*Entry, error)) (*Entry, bool, error) {
	if entry, ok := c.Get(key); ok {
		return entry, true, nil
	}
	entry, err := compute()
	if err != nil {
		return nil, false, err
	}
	c.Set(key, entry)
	return entry, false, nil
}

// InvalidatePage drops every entry of page and returns how many were
// removed.
func (c *RenderCache) InvalidatePage(page string) int {
	prefix := page + "\x00"
	removed := 0
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries and resets the counters.
func (c *RenderCache) Clear() {
	c.store.Flush()
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Stats returns the current counters.
func (c *RenderCache) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	stats := Stats{Entries: c.store.ItemCount(), Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}
