package http

import (
	"net/http"

	"github.com/harborview/identity/internal/identity/service"
	"github.com/harborview/identity/pkg/httpx"
	"github.com/harborview/identity/pkg/slogx"
)

// RevokeAllHandler serves POST /v1/token/revoke-all. It tears down every
// session for the bearer token's subject: all refresh records are deleted
// and the presented token is blacklisted. Used by account deactivation and
// "sign out everywhere".
type RevokeAllHandler struct {
	TokenService *service.TokenService
}

func (h *RevokeAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	access := bearerToken(r)
	if access == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Bearer token required.")
		return
	}

	n, err := h.TokenService.RevokeAllForUser(ctx, access)
	if err != nil {
		// The presented token failed validation. One generic answer for
		// every cause.
		log.Warn("revoke-all rejected", "err", err)
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Token is not valid.")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"revoked_sessions": n})
}
