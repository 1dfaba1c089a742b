package httpx

import (
	"context"

	"github.com/harborview/identity/pkg/authkit"
)

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyScopes   ctxKey = "scopes"
	CtxKeyIdentity ctxKey = "identity"
)

// SubjectFromContext returns the authenticated subject, or "" when the
// request did not pass through AuthnMiddleware.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(CtxKeyUserID).(string)
	return s
}

// ScopesFromContext returns the authenticated caller's scopes.
func ScopesFromContext(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyScopes).([]string); ok {
		return v
	}
	return nil
}

// IdentityFromContext returns the full verified identity.
func IdentityFromContext(ctx context.Context) (authkit.Identity, bool) {
	id, ok := ctx.Value(CtxKeyIdentity).(authkit.Identity)
	return id, ok
}
