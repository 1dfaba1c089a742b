package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/harborview/identity/internal/identity/service"
	"github.com/harborview/identity/pkg/httpx"
	"github.com/harborview/identity/pkg/slogx"
)

// LogoutHandler serves POST /v1/logout. It ends one session: the bearer
// access token is blacklisted and the session's refresh token (from the
// body) is deleted. Idempotent.
type LogoutHandler struct {
	TokenService *service.TokenService
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	access := bearerToken(r)
	if access == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Bearer token required.")
		return
	}

	var req logoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // body is optional

	if err := h.TokenService.Logout(ctx, access, req.RefreshToken); err != nil {
		log.Error("logout failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Could not complete logout.")
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
}
