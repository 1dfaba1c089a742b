package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry is an in-process Registry for tests and single-node dev
// runs. Expired entries are dropped lazily on read and swept on write so
// the map stays bounded without a janitor goroutine.
type MemoryRegistry struct {
	mu      sync.Mutex
	entries map[string]time.Time // jti -> expiry
	clock   func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		entries: make(map[string]time.Time),
		clock:   time.Now,
	}
}

// NewMemoryRegistryWithClock injects a clock, so tests can advance time
// instead of sleeping.
func NewMemoryRegistryWithClock(clock func() time.Time) *MemoryRegistry {
	r := NewMemoryRegistry()
	r.clock = clock
	return r
}

func (r *MemoryRegistry) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	for k, exp := range r.entries {
		if now.After(exp) {
			delete(r.entries, k)
		}
	}
	r.entries[jti] = now.Add(ClampTTL(ttl))
	return nil
}

func (r *MemoryRegistry) IsRevoked(_ context.Context, jti string) (bool, error) {
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.entries[jti]
	if !ok {
		return false, nil
	}
	if now.After(exp) {
		delete(r.entries, jti)
		return false, nil
	}
	return true, nil
}
