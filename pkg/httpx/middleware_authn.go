package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/harborview/identity/pkg/authkit"
	"github.com/harborview/identity/pkg/slogx"
)

// AuthnMiddleware verifies the bearer token and injects the resulting
// identity into the request context. All verification failures produce
// the same 401 body; the concrete reason goes to the log only, so the
// response never tells an attacker which check tripped. Infrastructure
// outages (keys or revocation registry unreachable) are the exception
// and surface as 503 since the credential itself was never judged.
func AuthnMiddleware(v *authkit.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			id, err := v.Verify(ctx, raw)
			if err != nil {
				if errors.Is(err, authkit.ErrKeyUnavailable) || errors.Is(err, authkit.ErrRevocationUnavailable) {
					log.Error("token verification unavailable", "err", err)
					WriteError(w, http.StatusServiceUnavailable,
						"temporarily_unavailable", "Verification backend unavailable. Retry shortly.")
					return
				}
				log.Warn("token verification failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithIdentity(ctx, id)))
		})
	}
}

func contextWithIdentity(ctx context.Context, id authkit.Identity) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, id.Subject)
	ctx = context.WithValue(ctx, CtxKeyScopes, id.Scopes)
	ctx = context.WithValue(ctx, CtxKeyIdentity, id)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
