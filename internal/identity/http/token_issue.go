package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/harborview/identity/internal/identity/service"
	"github.com/harborview/identity/pkg/httpx"
	"github.com/harborview/identity/pkg/slogx"
)

// IssueHandler serves POST /internal/v1/token/issue. This endpoint sits on
// the trusted network: the caller (login service, admin tooling) has
// already authenticated the subject and asks the issuer to mint a pair.
type IssueHandler struct {
	TokenService *service.TokenService
}

type issueRequest struct {
	UserID string         `json:"user_id"`
	Claims map[string]any `json:"claims,omitempty"`
}

func (h *IssueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body.")
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "user_id is required.")
		return
	}

	pair, err := h.TokenService.Issue(ctx, req.UserID, req.Claims)
	if err != nil {
		log.Error("token issuance failed", "err", err, "subject", req.UserID)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Could not issue tokens.")
		return
	}

	log.Info("token pair issued", "subject", req.UserID)
	httpx.WriteJSON(w, http.StatusOK, pair)
}
