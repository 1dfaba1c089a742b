package jwtx

import (
	"time"

	"github.com/harborview/identity/pkg/idx"
)

// Default token TTLs. Access tokens stay short so that the revocation gap
// discussed on the registry (tokens a subject-wide revoke cannot reach)
// is bounded; refresh tokens are long-lived and single-use.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Well-known custom claim names used across services. Anything else in
// Custom is carried opaquely.
const (
	ClaimScopes        = "scopes"
	ClaimTier          = "tier"
	ClaimEmailVerified = "email_verified"
)

// Claims is the value type protected by a token's signature. It is never
// mutated after construction.
type Claims struct {
	Issuer    string
	Subject   string
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time

	// ID is the jti, globally unique per issuance; revocation keys on it.
	ID string

	// Custom carries caller-supplied claims. Reserved registered claim
	// names are silently dropped at signing time so custom claims can
	// never shadow iss/sub/exp and friends.
	Custom map[string]any
}

// NewClaims builds the standard claim set for a subject with a fresh jti.
// Timestamps are truncated to whole seconds since that is the JWT wire
// resolution; encode/decode round-trips are then exact.
func NewClaims(issuer, subject string, ttl time.Duration, custom map[string]any, now time.Time) Claims {
	now = now.UTC().Truncate(time.Second)
	return Claims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  now,
		NotBefore: now,
		ExpiresAt: now.Add(ttl),
		ID:        idx.New().String(),
		Custom:    custom,
	}
}

// RemainingTTL reports how long the token stays naturally valid from now.
// Negative for already-expired tokens.
func (c Claims) RemainingTTL(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

// Scopes returns the scopes custom claim, if present.
func (c Claims) Scopes() []string {
	switch v := c.Custom[ClaimScopes].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Tier returns the subscription tier custom claim, if present.
func (c Claims) Tier() string {
	s, _ := c.Custom[ClaimTier].(string)
	return s
}

var reservedClaims = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "nbf": {}, "iat": {}, "jti": {},
}

func isReservedClaim(name string) bool {
	_, ok := reservedClaims[name]
	return ok
}
