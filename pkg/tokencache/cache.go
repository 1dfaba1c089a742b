// Package tokencache is a read-through cache of verification metadata
// keyed by token id. Downstream services consult it to avoid re-deriving
// authorization attributes (scopes, tier, email verification) on every
// request; anything that must stay current without re-issuing tokens
// lives here rather than in token claims.
package tokencache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a cache miss.
var ErrNotFound = errors.New("tokencache: not found")

// minTTL keeps a just-about-to-expire token from producing a zero or
// negative cache TTL.
const minTTL = 5 * time.Second

// Metadata is the enrichment record cached per token.
type Metadata struct {
	Subject       string    `json:"subject"`
	Scopes        []string  `json:"scopes,omitempty"`
	Tier          string    `json:"tier,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Cache stores Metadata with a TTL bounded by the token's expiry.
type Cache interface {
	// Remember stores md under jti until the token's natural expiry.
	Remember(ctx context.Context, jti string, md Metadata) error

	// Lookup returns the cached metadata or ErrNotFound.
	Lookup(ctx context.Context, jti string) (Metadata, error)

	// Forget drops the entry, typically on revocation.
	Forget(ctx context.Context, jti string) error
}

func ttlUntil(expiresAt, now time.Time) time.Duration {
	ttl := expiresAt.Sub(now)
	if ttl < minTTL {
		return minTTL
	}
	return ttl
}
