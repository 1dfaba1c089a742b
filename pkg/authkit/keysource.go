package authkit

import (
	"context"
	"crypto/rsa"
	"fmt"
	"sync"
	"time"

	"github.com/harborview/identity/pkg/cryptox"
	"github.com/harborview/identity/pkg/jwtx"
)

// DefaultKeyTTL is how long a fetched key set is trusted before the next
// request triggers a background refetch. Rotation is infrequent, and an
// unknown kid forces a refetch immediately, so this can stay generous.
const DefaultKeyTTL = 5 * time.Minute

// MaxKeyStaleness caps how long a cached key set keeps serving after
// refetches start failing. Past this age resolution fails closed so an
// extended issuer outage cannot pin retired trust material forever.
const MaxKeyStaleness = 30 * time.Minute

// StaticKeySource resolves kids against trust material handed to the
// process at startup (PEM files on disk, config values). No network.
type StaticKeySource struct {
	keys *jwtx.KeySet
}

// NewStaticKeySource builds a key source from one or more PEM-encoded RSA
// public keys. Kids are derived from the key fingerprint, matching how
// the issuer assigns them, so a PEM obtained out of band still resolves
// tokens signed under that key.
func NewStaticKeySource(pems ...[]byte) (*StaticKeySource, error) {
	ks := jwtx.NewKeySet()
	for _, p := range pems {
		pub, err := jwtx.ParseRSAPublicKeyPEM(p)
		if err != nil {
			return nil, err
		}
		kid, err := cryptox.PublicKeyFingerprint(pub)
		if err != nil {
			return nil, err
		}
		if err := ks.AddJWK(jwtx.NewRSAJWK(kid, "sig", "RS256", pub)); err != nil {
			return nil, err
		}
	}
	return &StaticKeySource{keys: ks}, nil
}

func (s *StaticKeySource) ResolveKey(kid string) (*rsa.PublicKey, error) {
	pub, err := s.keys.ResolveKey(kid)
	if err != nil {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}
	return pub, nil
}

// RemoteKeySource resolves kids against the issuer's JWKS endpoint,
// caching the fetched set for a TTL. An unknown kid inside the TTL window
// forces one refetch before the miss is treated as terminal, which is how
// verifiers pick up a key rotation without restarting.
type RemoteKeySource struct {
	client *Client
	ttl    time.Duration
	clock  func() time.Time

	mu        sync.Mutex
	keys      *jwtx.KeySet
	fetchedAt time.Time
}

func NewRemoteKeySource(client *Client, ttl time.Duration) *RemoteKeySource {
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	return &RemoteKeySource{
		client: client,
		ttl:    ttl,
		clock:  time.Now,
		keys:   jwtx.NewKeySet(),
	}
}

func (s *RemoteKeySource) ResolveKey(kid string) (*rsa.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := !s.fetchedAt.IsZero() && s.clock().Sub(s.fetchedAt) < s.ttl
	if fresh {
		if pub, err := s.keys.ResolveKey(kid); err == nil {
			return pub, nil
		}
		// Unknown kid with a fresh cache usually means the issuer just
		// rotated. Fall through to a forced refetch.
	}

	if err := s.refetchLocked(); err != nil {
		// Transient fetch failure. A previously cached key for this kid
		// keeps the service verifying while the issuer is unreachable,
		// up to the staleness ceiling; past that, fail closed.
		if !s.fetchedAt.IsZero() && s.clock().Sub(s.fetchedAt) < MaxKeyStaleness {
			if pub, kerr := s.keys.ResolveKey(kid); kerr == nil {
				return pub, nil
			}
		}
		return nil, err
	}

	pub, err := s.keys.ResolveKey(kid)
	if err != nil {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}
	return pub, nil
}

// Prime fetches the key set eagerly so startup fails fast on a bad JWKS
// URL instead of the first request doing so.
func (s *RemoteKeySource) Prime(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jwks, err := s.client.FetchJWKS(ctx)
	if err != nil {
		return err
	}
	if err := s.keys.ResetFromJWKS(jwks); err != nil {
		return fmt.Errorf("%w: %w", ErrKeyUnavailable, err)
	}
	s.fetchedAt = s.clock()
	return nil
}

func (s *RemoteKeySource) refetchLocked() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.client.httpClient.Timeout)
	defer cancel()

	jwks, err := s.client.FetchJWKS(ctx)
	if err != nil {
		return err
	}
	if err := s.keys.ResetFromJWKS(jwks); err != nil {
		return fmt.Errorf("%w: %w", ErrKeyUnavailable, err)
	}
	s.fetchedAt = s.clock()
	return nil
}
