package tokencache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache backs tests and single-node dev runs.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   func() time.Time
}

type memoryEntry struct {
	md     Metadata
	expiry time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		clock:   time.Now,
	}
}

// NewMemoryCacheWithClock injects a clock for tests.
func NewMemoryCacheWithClock(clock func() time.Time) *MemoryCache {
	c := NewMemoryCache()
	c.clock = clock
	return c
}

func (c *MemoryCache) Remember(_ context.Context, jti string, md Metadata) error {
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if now.After(e.expiry) {
			delete(c.entries, k)
		}
	}
	c.entries[jti] = memoryEntry{md: md, expiry: now.Add(ttlUntil(md.ExpiresAt, now))}
	return nil
}

func (c *MemoryCache) Lookup(_ context.Context, jti string) (Metadata, error) {
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[jti]
	if !ok || now.After(e.expiry) {
		delete(c.entries, jti)
		return Metadata{}, ErrNotFound
	}
	return e.md, nil
}

func (c *MemoryCache) Forget(_ context.Context, jti string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, jti)
	return nil
}
