package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/harborview/identity/internal/identity/service"
	"github.com/harborview/identity/pkg/httpx"
	"github.com/harborview/identity/pkg/slogx"
)

// RefreshHandler serves POST /v1/token/refresh. The presented secret is
// single-use: a successful call consumes it and returns a replacement.
// Unknown, expired, and replayed tokens all get the same response.
type RefreshHandler struct {
	TokenService *service.TokenService
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required.")
		return
	}

	pair, err := h.TokenService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_grant", "Refresh token is not valid.")
			return
		}
		log.Error("refresh failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Could not refresh tokens.")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}
