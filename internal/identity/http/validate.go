package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/harborview/identity/internal/identity/service"
	"github.com/harborview/identity/pkg/httpx"
	"github.com/harborview/identity/pkg/slogx"
)

// ValidateHandler serves POST /internal/v1/validate, issuing-side token
// introspection for services that prefer a round trip over embedding the
// verification SDK. Invalid tokens of every kind get the same 401.
type ValidateHandler struct {
	TokenService *service.TokenService
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Active    bool      `json:"active"`
	Subject   string    `json:"subject,omitempty"`
	TokenID   string    `json:"jti,omitempty"`
	Scopes    []string  `json:"scopes,omitempty"`
	Tier      string    `json:"tier,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

func (h *ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required.")
		return
	}

	claims, err := h.TokenService.Validate(ctx, req.Token)
	if err != nil {
		log.Info("validate rejected token", "err", err)
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Token is not valid.")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, validateResponse{
		Active:    true,
		Subject:   claims.Subject,
		TokenID:   claims.ID,
		Scopes:    claims.Scopes(),
		Tier:      claims.Tier(),
		ExpiresAt: claims.ExpiresAt,
	})
}
