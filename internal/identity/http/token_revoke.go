package http

import (
	"encoding/json"
	"net/http"

	"github.com/harborview/identity/internal/identity/service"
	"github.com/harborview/identity/pkg/httpx"
	"github.com/harborview/identity/pkg/slogx"
)

// RevokeHandler serves POST /v1/token/revoke. It blacklists an access
// token's jti for its remaining lifetime. Responds 200 even for invalid
// or unknown tokens so the endpoint cannot be used to probe token state.
type RevokeHandler struct {
	TokenService *service.TokenService
}

type revokeRequest struct {
	Token string `json:"token"`
}

func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required.")
		return
	}

	if err := h.TokenService.RevokeAccessToken(ctx, req.Token); err != nil {
		log.Warn("revoke failed", "err", err)
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}
