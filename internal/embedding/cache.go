package embedding

import (
	"sync"
	"time"
)

// QueryCache avoids re-embedding identical query strings inside the TTL
// window.
type QueryCache interface {
	Get(queryText string) ([]float32, bool)
	Set(queryText string, vector []float32, ttl time.Duration)
}

type cacheEntry struct {
	vector    []float32
	expiresAt time.Time
}

// MemoryQueryCache is an in-process, single-node cache. Good enough for one
// server instance; RedisQueryCache (redis_cache.go) fans the same contract
// out to Redis for multi-instance deployments.
type MemoryQueryCache struct {
	mu    sync.Mutex
	store map[string]cacheEntry
	now   func() time.Time
}

func NewMemoryQueryCache() *MemoryQueryCache {
	return &MemoryQueryCache{store: make(map[string]cacheEntry), now: time.Now}
}

func (c *MemoryQueryCache) Get(queryText string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.store[queryText]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.After(c.now()) {
		delete(c.store, queryText)
		return nil, false
	}
	return append([]float32(nil), entry.vector...), true
}

// DefaultTTL mirrors the reference cache's 24-hour default.
const DefaultTTL = 24 * time.Hour

func (c *MemoryQueryCache) Set(queryText string, vector []float32, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[queryText] = cacheEntry{
		vector:    append([]float32(nil), vector...),
		expiresAt: c.now().Add(ttl),
	}
}
