package authkit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harborview/identity/pkg/authkit"
	"github.com/harborview/identity/pkg/cryptox"
	"github.com/harborview/identity/pkg/jwtx"
	"github.com/harborview/identity/pkg/revocation"
	"github.com/harborview/identity/pkg/tokencache"
)

const testIssuer = "https://identity.test"

func newTestSigner(t *testing.T) *jwtx.Signer {
	t.Helper()

	pemKey, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)

	signer, err := jwtx.NewSigner("", pemKey)
	require.NoError(t, err)

	kid, err := cryptox.PublicKeyFingerprint(signer.PublicKey())
	require.NoError(t, err)

	signer, err = jwtx.NewSigner(kid, pemKey)
	require.NoError(t, err)
	return signer
}

func signToken(t *testing.T, signer *jwtx.Signer, sub string, custom map[string]any) (string, jwtx.Claims) {
	t.Helper()

	claims := jwtx.NewClaims(testIssuer, sub, jwtx.DefaultAccessTokenTTL, custom, time.Now())
	token, err := signer.Sign(claims)
	require.NoError(t, err)
	return token, claims
}

// jwksServer serves the signer's key set and counts fetches.
func jwksServer(t *testing.T, jwks jwtx.JWKS, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/jwks.json" {
			http.NotFound(w, r)
			return
		}
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(jwks))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifyWithRemoteJWKS(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t)
	var hits atomic.Int64
	srv := jwksServer(t, jwtx.JWKS{Keys: []jwtx.JWK{signer.PublicJWK()}}, &hits)

	verifier := authkit.NewVerifier(authkit.Config{
		Issuer: testIssuer,
		Keys:   authkit.NewRemoteKeySource(authkit.NewClient(srv.URL, 0), time.Minute),
	})

	token, claims := signToken(t, signer, "user-1", map[string]any{
		jwtx.ClaimScopes: []string{"subscription:read"},
		jwtx.ClaimTier:   "pro",
	})

	id, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "user-1", id.Subject)
	require.Equal(t, claims.ID, id.TokenID)
	require.Equal(t, []string{"subscription:read"}, id.Scopes)
	require.Equal(t, "pro", id.Tier)

	// Second token inside the TTL window must not refetch the JWKS.
	token2, _ := signToken(t, signer, "user-2", nil)
	_, err = verifier.Verify(context.Background(), token2)
	require.NoError(t, err)
	require.Equal(t, int64(1), hits.Load())
}

func TestVerifyUnknownKidForcesRefetch(t *testing.T) {
	t.Parallel()

	oldSigner := newTestSigner(t)
	newSigner := newTestSigner(t)

	// The served key set is swappable to simulate a rotation.
	var served atomic.Value
	served.Store(jwtx.JWKS{Keys: []jwtx.JWK{oldSigner.PublicJWK()}})
	var hits atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(served.Load().(jwtx.JWKS)))
	}))
	t.Cleanup(srv.Close)

	verifier := authkit.NewVerifier(authkit.Config{
		Issuer: testIssuer,
		Keys:   authkit.NewRemoteKeySource(authkit.NewClient(srv.URL, 0), time.Hour),
	})

	token, _ := signToken(t, oldSigner, "user-1", nil)
	_, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)

	// Rotate: the cached set is still fresh but lacks the new kid, so the
	// unknown kid must force exactly one refetch.
	served.Store(jwtx.JWKS{Keys: []jwtx.JWK{newSigner.PublicJWK()}})
	rotated, _ := signToken(t, newSigner, "user-1", nil)
	_, err = verifier.Verify(context.Background(), rotated)
	require.NoError(t, err)
	require.Equal(t, int64(2), hits.Load())

	// A kid nobody ever published stays terminal even after refetching.
	ghost := newTestSigner(t)
	forged, _ := signToken(t, ghost, "user-1", nil)
	_, err = verifier.Verify(context.Background(), forged)
	require.ErrorIs(t, err, authkit.ErrKeyNotFound)
}

func TestVerifyKeyUnavailableFailsClosed(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	verifier := authkit.NewVerifier(authkit.Config{
		Issuer: testIssuer,
		Keys:   authkit.NewRemoteKeySource(authkit.NewClient(srv.URL, 0), time.Minute),
	})

	token, _ := signToken(t, signer, "user-1", nil)
	_, err := verifier.Verify(context.Background(), token)
	require.ErrorIs(t, err, authkit.ErrKeyUnavailable)
	require.NotErrorIs(t, err, authkit.ErrKeyNotFound)
}

func TestVerifyStaleKeyServedDuringOutage(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t)
	var healthy atomic.Bool
	healthy.Store(true)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(jwtx.JWKS{Keys: []jwtx.JWK{signer.PublicJWK()}}))
	}))
	t.Cleanup(srv.Close)

	// Zero TTL: every resolve wants a refetch, exercising the stale path.
	verifier := authkit.NewVerifier(authkit.Config{
		Issuer: testIssuer,
		Keys:   authkit.NewRemoteKeySource(authkit.NewClient(srv.URL, 0), time.Nanosecond),
	})

	token, _ := signToken(t, signer, "user-1", nil)
	_, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)

	healthy.Store(false)
	_, err = verifier.Verify(context.Background(), token)
	require.NoError(t, err, "previously cached key should keep verifying through the outage")
}

func TestVerifyStaticKeySource(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t)
	pemStr, err := signer.PublicJWK().PEM()
	require.NoError(t, err)

	keys, err := authkit.NewStaticKeySource([]byte(pemStr))
	require.NoError(t, err)

	verifier := authkit.NewVerifier(authkit.Config{Issuer: testIssuer, Keys: keys})

	token, _ := signToken(t, signer, "user-1", nil)
	id, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "user-1", id.Subject)

	other := newTestSigner(t)
	forged, _ := signToken(t, other, "user-1", nil)
	_, err = verifier.Verify(context.Background(), forged)
	require.ErrorIs(t, err, authkit.ErrKeyNotFound)
}

func TestVerifyMissingToken(t *testing.T) {
	t.Parallel()

	keys, err := authkit.NewStaticKeySource()
	require.NoError(t, err)
	verifier := authkit.NewVerifier(authkit.Config{Keys: keys})

	_, err = verifier.Verify(context.Background(), "")
	require.ErrorIs(t, err, authkit.ErrMissingToken)
}

func TestVerifyRevokedThroughMirror(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t)
	pemStr, err := signer.PublicJWK().PEM()
	require.NoError(t, err)
	keys, err := authkit.NewStaticKeySource([]byte(pemStr))
	require.NoError(t, err)

	registry := revocation.NewMemoryRegistry()
	verifier := authkit.NewVerifier(authkit.Config{
		Issuer:      testIssuer,
		Keys:        keys,
		Revocations: authkit.NewRevocationMirror(registry, time.Nanosecond),
	})

	token, claims := signToken(t, signer, "user-1", nil)
	ctx := context.Background()

	_, err = verifier.Verify(ctx, token)
	require.NoError(t, err)

	require.NoError(t, registry.Revoke(ctx, claims.ID, claims.RemainingTTL(time.Now())))

	// Nanosecond mirror TTL means the next verify sees the registry truth.
	_, err = verifier.Verify(ctx, token)
	require.ErrorIs(t, err, authkit.ErrRevoked)
}

func TestMirrorServesCachedAnswerWithinTTL(t *testing.T) {
	t.Parallel()

	registry := revocation.NewMemoryRegistry()
	mirror := authkit.NewRevocationMirror(registry, time.Hour)
	ctx := context.Background()

	revoked, err := mirror.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)

	// The registry learns of the revocation, but the mirror's cached
	// not-revoked answer is still inside its TTL. Eventual consistency is
	// the documented trade.
	require.NoError(t, registry.Revoke(ctx, "jti-1", time.Hour))
	revoked, err = mirror.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestVerifyMetadataOverridesClaims(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t)
	pemStr, err := signer.PublicJWK().PEM()
	require.NoError(t, err)
	keys, err := authkit.NewStaticKeySource([]byte(pemStr))
	require.NoError(t, err)

	cache := tokencache.NewMemoryCache()
	verifier := authkit.NewVerifier(authkit.Config{
		Issuer:   testIssuer,
		Keys:     keys,
		Metadata: cache,
	})

	token, claims := signToken(t, signer, "user-1", map[string]any{
		jwtx.ClaimTier:          "free",
		jwtx.ClaimEmailVerified: false,
	})
	ctx := context.Background()

	// The user upgraded after issuance; the cache carries the new truth.
	require.NoError(t, cache.Remember(ctx, claims.ID, tokencache.Metadata{
		Subject:       "user-1",
		Scopes:        []string{"subscription:write"},
		Tier:          "pro",
		EmailVerified: true,
		ExpiresAt:     claims.ExpiresAt,
	}))

	id, err := verifier.Verify(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "pro", id.Tier)
	require.Equal(t, []string{"subscription:write"}, id.Scopes)
	require.True(t, id.EmailVerified)
}
