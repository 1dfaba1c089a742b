package authkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harborview/identity/pkg/revocation"
)

// DefaultMirrorTTL bounds how stale a mirrored revocation answer may be.
// A freshly revoked token can still pass remote verification for up to
// this long; keep it at seconds scale.
const DefaultMirrorTTL = 5 * time.Second

// RevocationMirror caches registry answers in process so the request hot
// path does not pay a registry round trip per token. Both revoked and
// not-revoked answers are cached; a registry outage with no fresh cache
// entry fails closed.
type RevocationMirror struct {
	registry revocation.Registry
	ttl      time.Duration
	clock    func() time.Time

	mu      sync.Mutex
	entries map[string]mirrorEntry
}

type mirrorEntry struct {
	revoked bool
	expiry  time.Time
}

func NewRevocationMirror(registry revocation.Registry, ttl time.Duration) *RevocationMirror {
	if ttl <= 0 {
		ttl = DefaultMirrorTTL
	}
	return &RevocationMirror{
		registry: registry,
		ttl:      ttl,
		clock:    time.Now,
		entries:  make(map[string]mirrorEntry),
	}
}

func (m *RevocationMirror) IsRevoked(ctx context.Context, jti string) (bool, error) {
	now := m.clock()

	m.mu.Lock()
	if e, ok := m.entries[jti]; ok && now.Before(e.expiry) {
		m.mu.Unlock()
		return e.revoked, nil
	}
	m.mu.Unlock()

	revoked, err := m.registry.IsRevoked(ctx, jti)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
	}

	m.mu.Lock()
	for k, e := range m.entries {
		if now.After(e.expiry) {
			delete(m.entries, k)
		}
	}
	m.entries[jti] = mirrorEntry{revoked: revoked, expiry: now.Add(m.ttl)}
	m.mu.Unlock()

	return revoked, nil
}
