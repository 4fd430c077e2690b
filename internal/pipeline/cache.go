package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/sells-group/labelscore/internal/model"
)

// DefaultCachePrefix namespaces cache keys.
const DefaultCachePrefix = "labelscore"

// Cache stores ChainResults by key. Get returns nil, nil on a miss.
// Implementations live here (memory) and in internal/store (sqlite,
// postgres).
type Cache interface {
	Get(ctx context.Context, key string) (*model.CachedEntry, error)
	Put(ctx context.Context, key string, entry *model.CachedEntry) error
	Delete(ctx context.Context, key string) error
}

// CacheKey returns prefix + "_" + hex(sha256(url)).
func CacheKey(prefix, rawURL string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(rawURL)))
	return prefix + "_" + hex.EncodeToString(sum[:])
}

// MemoryCache is an in-process Cache. Entries are deep-copied on the way in
// and out so callers never share slices with the cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]model.CachedEntry
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]model.CachedEntry)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (*model.CachedEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	return &model.CachedEntry{Data: *e.Data.Clone(), Timestamp: e.Timestamp}, nil
}

// Put implements Cache.
func (c *MemoryCache) Put(_ context.Context, key string, entry *model.CachedEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = model.CachedEntry{Data: *entry.Data.Clone(), Timestamp: entry.Timestamp}
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Prune removes entries written before cutoff (epoch millis) and returns
// how many were removed.
func (c *MemoryCache) Prune(cutoff int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if e.Timestamp < cutoff {
			delete(c.entries, k)
			n++
		}
	}
	return n
}
