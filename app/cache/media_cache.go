package cache

import (
	"sync"
	"time"

	"downpour/app/model"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry is one cached media info record. Entries are immutable; Set always
// stores a fresh one.
type entry struct {
	info      *model.MediaInfo
	fetchedAt time.Time
}

// MediaInfoCache is a bounded LRU cache of fetched media metadata, keyed by
// normalized URL. Entries expire after a TTL and are evicted lazily on
// lookup. One instance is shared by the whole process and is safe for
// concurrent use.
type MediaInfoCache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, entry]
	ttl time.Duration
	now func() time.Time
}

// NewMediaInfoCache creates a cache holding at most capacity entries, each
// fresh for ttl.
func NewMediaInfoCache(capacity int, ttl time.Duration) *MediaInfoCache {
	l, err := lru.New[string, entry](capacity)
	if err != nil {
		// only reachable with capacity <= 0, which config validation forbids
		panic(err)
	}
	return &MediaInfoCache{
		lru: l,
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the cached media info for url, or nil when absent or stale.
// A hit refreshes the entry's recency; a stale entry is evicted.
func (c *MediaInfoCache) Get(url string) *model.MediaInfo {
	key := NormalizeURL(url)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		return nil
	}
	if c.now().Sub(e.fetchedAt) >= c.ttl {
		c.lru.Remove(key)
		return nil
	}
	return e.info
}

// Set stores info under the normalized key with a fresh timestamp. At
// capacity the least-recently-used entry is evicted.
func (c *MediaInfoCache) Set(url string, info *model.MediaInfo) {
	key := NormalizeURL(url)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, entry{info: info, fetchedAt: c.now()})
}

// Contains reports whether a fresh entry exists without touching recency.
func (c *MediaInfoCache) Contains(url string) bool {
	key := NormalizeURL(url)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Peek(key)
	return ok && c.now().Sub(e.fetchedAt) < c.ttl
}

// Len returns the number of stored entries, including not-yet-evicted
// stale ones.
func (c *MediaInfoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Clear drops every entry, used by the UI's force refresh.
func (c *MediaInfoCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// SetClock overrides the time source, for tests.
func (c *MediaInfoCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
