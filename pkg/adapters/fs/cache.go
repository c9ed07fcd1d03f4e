package fs

import (
	"sync"
	"time"

	"github.com/saferoomai/feedback/pkg/core"
)

// cacheEntry holds a parsed blob together with the file stamp it was parsed
// from.
type cacheEntry struct {
	Blob         core.Blob
	LastModified time.Time
	Size         int64
}

// cache keeps parsed blobs keyed by storage key so that repeated loads of an
// unchanged file skip JSON decoding.
type cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

func newCache() *cache {
	return &cache{entries: make(map[string]*cacheEntry)}
}

// Get returns a copy of the cached blob if the stamp still matches.
func (c *cache) Get(key string, mtime time.Time, size int64) (core.Blob, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.LastModified.Equal(mtime) || entry.Size != size {
		return nil, false
	}
	return cloneBlob(entry.Blob), true
}

// Set records the parsed blob for key.
func (c *cache) Set(key string, blob core.Blob, mtime time.Time, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{
		Blob:         cloneBlob(blob),
		LastModified: mtime,
		Size:         size,
	}
}

// Delete removes a single entry.
func (c *cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of entries in the cache.
func (c *cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cloneBlob copies the top level. Values are JSON scalars for feedback
// blobs, so a shallow copy isolates callers.
func cloneBlob(b core.Blob) core.Blob {
	if b == nil {
		return nil
	}
	out := make(core.Blob, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
