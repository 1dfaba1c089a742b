package authkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harborview/identity/pkg/jwtx"
	"github.com/harborview/identity/pkg/tokencache"
)

// Config wires a Verifier. Keys is required; Revocations and Metadata are
// optional and simply skipped when nil, for services that only need
// signature and claim validation.
type Config struct {
	// Issuer the tokens must carry. Empty disables the check.
	Issuer string

	// Leeway tolerated when validating exp/nbf.
	Leeway time.Duration

	Keys        jwtx.KeyResolver
	Revocations *RevocationMirror
	Metadata    tokencache.Cache
}

// Identity is the authenticated principal extracted from a verified
// token. Scopes, Tier, and EmailVerified come from the metadata cache
// when an entry exists for the jti, falling back to the token's own
// claims, so attribute changes made after issuance are visible without
// waiting out the token TTL.
type Identity struct {
	Subject       string
	TokenID       string
	ExpiresAt     time.Time
	Scopes        []string
	Tier          string
	EmailVerified bool

	// Claims is the full decoded claim set for callers that need more
	// than the flattened fields above.
	Claims jwtx.Claims
}

// Verifier is the downstream-service entry point: local signature
// verification plus mirrored revocation and metadata lookups.
type Verifier struct {
	jwt  *jwtx.Verifier
	conf Config
}

func NewVerifier(conf Config) *Verifier {
	return &Verifier{
		jwt: jwtx.NewVerifier(conf.Keys, jwtx.VerifyOptions{
			Issuer: conf.Issuer,
			Leeway: conf.Leeway,
		}),
		conf: conf,
	}
}

// Verify validates the token and returns the identity it proves. Errors
// are drawn from this package's sentinels and the jwtx taxonomy; callers
// should branch with errors.Is, never on message text.
func (v *Verifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingToken
	}

	claims, err := v.jwt.Verify(token)
	if err != nil {
		// Key-resolution failures from a remote source travel inside the
		// jwt error chain; surface them ahead of the generic taxonomy so
		// a transient fetch outage is distinguishable from a forgery.
		switch {
		case errors.Is(err, ErrKeyNotFound), errors.Is(err, ErrKeyUnavailable):
			return Identity{}, err
		case errors.Is(err, jwtx.ErrUnknownKeyID):
			return Identity{}, fmt.Errorf("%w: %w", ErrKeyNotFound, err)
		default:
			return Identity{}, err
		}
	}

	if v.conf.Revocations != nil {
		revoked, err := v.conf.Revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Identity{}, err
		}
		if revoked {
			return Identity{}, ErrRevoked
		}
	}

	id := Identity{
		Subject:   claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt,
		Scopes:    claims.Scopes(),
		Tier:      claims.Tier(),
		Claims:    claims,
	}
	if ev, ok := claims.Custom[jwtx.ClaimEmailVerified].(bool); ok {
		id.EmailVerified = ev
	}

	if v.conf.Metadata != nil {
		// Best effort: a cache miss or outage falls back to the claims
		// baked into the token.
		if md, err := v.conf.Metadata.Lookup(ctx, claims.ID); err == nil {
			if len(md.Scopes) > 0 {
				id.Scopes = md.Scopes
			}
			if md.Tier != "" {
				id.Tier = md.Tier
			}
			id.EmailVerified = md.EmailVerified
		}
	}

	return id, nil
}
