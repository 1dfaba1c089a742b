package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harborview/identity/pkg/authkit"
	"github.com/harborview/identity/pkg/cryptox"
	"github.com/harborview/identity/pkg/httpx"
	"github.com/harborview/identity/pkg/jwtx"
	"github.com/harborview/identity/pkg/revocation"
)

const testIssuer = "https://identity.test"

func newSignerAndVerifier(t *testing.T, registry revocation.Registry) (*jwtx.Signer, *authkit.Verifier) {
	t.Helper()

	pemKey, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)
	signer, err := jwtx.NewSigner("test-kid", pemKey)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	conf := authkit.Config{Issuer: testIssuer, Keys: keys}
	if registry != nil {
		conf.Revocations = authkit.NewRevocationMirror(registry, time.Nanosecond)
	}
	return signer, authkit.NewVerifier(conf)
}

func signToken(t *testing.T, signer *jwtx.Signer, sub string, scopes []string) string {
	t.Helper()

	claims := jwtx.NewClaims(testIssuer, sub, jwtx.DefaultAccessTokenTTL,
		map[string]any{jwtx.ClaimScopes: scopes}, time.Now())
	token, err := signer.Sign(claims)
	require.NoError(t, err)
	return token
}

func echoSubject() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(httpx.SubjectFromContext(r.Context())))
	})
}

func TestAuthnMiddlewareInjectsIdentity(t *testing.T) {
	t.Parallel()

	signer, verifier := newSignerAndVerifier(t, nil)
	h := httpx.Chain(echoSubject(), httpx.AuthnMiddleware(verifier))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, signer, "user-1", []string{"subscription:read"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-1", rec.Body.String())
}

func TestAuthnMiddlewareRejectsUniformly(t *testing.T) {
	t.Parallel()

	signer, verifier := newSignerAndVerifier(t, revocation.NewMemoryRegistry())
	h := httpx.Chain(echoSubject(), httpx.AuthnMiddleware(verifier))

	// Expired token and garbage token must be indistinguishable in the
	// response.
	expired := func() string {
		claims := jwtx.NewClaims(testIssuer, "user-1", -time.Minute, nil, time.Now())
		token, err := signer.Sign(claims)
		require.NoError(t, err)
		return token
	}()

	for name, header := range map[string]string{
		"no header":     "",
		"not bearer":    "Basic abc",
		"garbage":       "Bearer not.a.jwt",
		"expired token": "Bearer " + expired,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthnMiddlewareRevocationOutageIs503(t *testing.T) {
	t.Parallel()

	signer, verifier := newSignerAndVerifier(t, failingRegistry{})
	h := httpx.Chain(echoSubject(), httpx.AuthnMiddleware(verifier))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, signer, "user-1", nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type failingRegistry struct{}

func (failingRegistry) Revoke(context.Context, string, time.Duration) error {
	return context.DeadlineExceeded
}

func (failingRegistry) IsRevoked(context.Context, string) (bool, error) {
	return false, context.DeadlineExceeded
}

func TestRequireAnyScope(t *testing.T) {
	t.Parallel()

	signer, verifier := newSignerAndVerifier(t, nil)
	ok := httptest.NewRecorder()
	forbidden := httptest.NewRecorder()

	h := httpx.Chain(echoSubject(),
		httpx.AuthnMiddleware(verifier),
		httpx.RequireAnyScope("subscription:write", "admin"),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, signer, "user-1", []string{"subscription:write"}))
	h.ServeHTTP(ok, req)
	require.Equal(t, http.StatusOK, ok.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, signer, "user-1", []string{"subscription:read"}))
	h.ServeHTTP(forbidden, req)
	require.Equal(t, http.StatusForbidden, forbidden.Code)
	require.Contains(t, forbidden.Header().Get("WWW-Authenticate"), "insufficient_scope")
}

func TestRequireAllScopes(t *testing.T) {
	t.Parallel()

	signer, verifier := newSignerAndVerifier(t, nil)
	h := httpx.Chain(echoSubject(),
		httpx.AuthnMiddleware(verifier),
		httpx.RequireAllScopes("subscription:read", "subscription:write"),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, signer, "user-1", []string{"subscription:read"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, signer, "user-1",
		[]string{"subscription:read", "subscription:write"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
