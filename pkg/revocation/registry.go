// Package revocation records access-token ids (jti) that were invalidated
// before their natural expiry. Entries carry a TTL bounded below by the
// token's remaining lifetime, so a revocation can never expire out of the
// registry while the token it covers is still otherwise valid.
package revocation

import (
	"context"
	"time"
)

// MinTTL is the floor applied to revocation entries. Computing
// tokenExpiry-now can come out zero or negative under clock skew; a
// zero-TTL write would silently drop the revocation.
const MinTTL = 5 * time.Second

// Registry is the shared store consulted by the issuer directly and by
// remote verifiers through a local mirror.
type Registry interface {
	// Revoke records jti as unusable for ttl (clamped to MinTTL).
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether jti has been revoked and not yet aged out.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// ClampTTL bounds ttl below by MinTTL.
func ClampTTL(ttl time.Duration) time.Duration {
	if ttl < MinTTL {
		return MinTTL
	}
	return ttl
}
