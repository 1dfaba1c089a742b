package jwtx_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/harborview/identity/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "identity-service"

func newTestSigner(t *testing.T, kid string) (*jwtx.Signer, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	signer, err := jwtx.NewSigner(kid, privPEM)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())
	return signer, key
}

func newTestVerifier(t *testing.T, signer *jwtx.Signer) *jwtx.Verifier {
	t.Helper()

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	return jwtx.NewVerifier(keys, jwtx.VerifyOptions{Issuer: testIssuer})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	signer, _ := newTestSigner(t, "k1")
	verifier := newTestVerifier(t, signer)

	now := time.Now()
	claims := jwtx.NewClaims(testIssuer, "user-123", 2*time.Minute, map[string]any{
		jwtx.ClaimScopes:        []any{"subscription:read", "subscription:write"},
		jwtx.ClaimTier:          "pro",
		jwtx.ClaimEmailVerified: true,
	}, now)

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, claims, decoded)
	require.Equal(t, []string{"subscription:read", "subscription:write"}, decoded.Scopes())
	require.Equal(t, "pro", decoded.Tier())
}

func TestDecodeWithoutCustomClaims(t *testing.T) {
	t.Parallel()

	signer, _ := newTestSigner(t, "k1")
	verifier := newTestVerifier(t, signer)

	claims := jwtx.NewClaims(testIssuer, "user-9", time.Minute, nil, time.Now())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	decoded, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, claims, decoded)
	require.Nil(t, decoded.Custom)
}

func TestCustomClaimsCannotShadowRegistered(t *testing.T) {
	t.Parallel()

	signer, _ := newTestSigner(t, "k1")
	verifier := newTestVerifier(t, signer)

	claims := jwtx.NewClaims(testIssuer, "user-123", time.Minute, map[string]any{
		"sub": "attacker",
		"exp": float64(0),
	}, time.Now())

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	decoded, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", decoded.Subject)
}

func TestExpiredWinsOverSignatureChecks(t *testing.T) {
	t.Parallel()

	signer, _ := newTestSigner(t, "k1")
	verifier := newTestVerifier(t, signer)

	// Issued well in the past; the signature is still technically valid.
	claims := jwtx.NewClaims(testIssuer, "user-123", time.Minute, nil, time.Now().Add(-time.Hour))
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
	require.NotErrorIs(t, err, jwtx.ErrSignatureInvalid)
}

func TestNotYetValid(t *testing.T) {
	t.Parallel()

	signer, _ := newTestSigner(t, "k1")
	verifier := newTestVerifier(t, signer)

	claims := jwtx.NewClaims(testIssuer, "user-123", time.Hour, nil, time.Now().Add(10*time.Minute))
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrNotYetValid)
}

func TestMalformedToken(t *testing.T) {
	t.Parallel()

	signer, _ := newTestSigner(t, "k1")
	verifier := newTestVerifier(t, signer)

	for _, bad := range []string{"", "abc", "a.b", "a.b.c.d", "!!!.???.###"} {
		_, err := verifier.Verify(bad)
		require.ErrorIs(t, err, jwtx.ErrMalformed, "input %q", bad)
	}
}

func TestWrongKeySignatureInvalid(t *testing.T) {
	t.Parallel()

	signer, _ := newTestSigner(t, "k1")
	imposter, _ := newTestSigner(t, "k1") // same kid, different key
	verifier := newTestVerifier(t, signer)

	claims := jwtx.NewClaims(testIssuer, "user-123", time.Minute, nil, time.Now())
	token, err := imposter.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrSignatureInvalid)
}

func TestAlgorithmDowngradeRejected(t *testing.T) {
	t.Parallel()

	signer, _ := newTestSigner(t, "k1")
	verifier := newTestVerifier(t, signer)

	// An HS256 token claiming the issuer's kid must never verify, even
	// though the declared algorithm is internally consistent.
	mc := jwt.MapClaims{
		"iss": testIssuer,
		"sub": "user-123",
		"exp": jwt.NewNumericDate(time.Now().Add(time.Minute)),
		"jti": "forged",
	}
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	forged.Header["kid"] = "k1"
	token, err := forged.SignedString([]byte("guessable-secret"))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrSignatureInvalid)
}

func TestUnknownKID(t *testing.T) {
	t.Parallel()

	signer, _ := newTestSigner(t, "k1")
	stranger, _ := newTestSigner(t, "other-key")
	verifier := newTestVerifier(t, signer)

	claims := jwtx.NewClaims(testIssuer, "user-123", time.Minute, nil, time.Now())
	token, err := stranger.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrUnknownKeyID)
}

type stubResolver struct{ err error }

func (r stubResolver) ResolveKey(string) (*rsa.PublicKey, error) { return nil, r.err }

func TestResolverErrorsPassThrough(t *testing.T) {
	t.Parallel()

	signer, _ := newTestSigner(t, "k1")
	upstream := errors.New("key service unreachable")
	verifier := jwtx.NewVerifier(stubResolver{err: upstream}, jwtx.VerifyOptions{Issuer: testIssuer})

	claims := jwtx.NewClaims(testIssuer, "user-123", time.Minute, nil, time.Now())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	// A failed key lookup is not a forgery; the resolver's own error must
	// stay matchable and no signature sentinel may shadow it.
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, upstream)
	require.NotErrorIs(t, err, jwtx.ErrSignatureInvalid)
}

func TestIssuerMismatch(t *testing.T) {
	t.Parallel()

	signer, _ := newTestSigner(t, "k1")
	verifier := newTestVerifier(t, signer)

	claims := jwtx.NewClaims("someone-else", "user-123", time.Minute, nil, time.Now())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuerMismatch)
}

func TestLeewayToleratesSkew(t *testing.T) {
	t.Parallel()

	signer, _ := newTestSigner(t, "k1")
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	verifier := jwtx.NewVerifier(keys, jwtx.VerifyOptions{Issuer: testIssuer, Leeway: time.Minute})

	// Expired ten seconds ago, within the leeway window.
	claims := jwtx.NewClaims(testIssuer, "user-123", time.Minute, nil, time.Now().Add(-70*time.Second))
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.NoError(t, err)
}
