package http

import (
	"net/http"
	"time"

	"github.com/harborview/identity/pkg/httpx"
)

type subscriptionResponse struct {
	Subject       string    `json:"subject"`
	Tier          string    `json:"tier"`
	EmailVerified bool      `json:"email_verified"`
	Scopes        []string  `json:"scopes"`
	TokenExpires  time.Time `json:"token_expires_at"`
}

// SubscriptionHandler returns the caller's subscription state as carried
// by their verified identity. Tier and email_verified reflect the
// metadata cache when an entry exists, so upgrades show up without
// re-issuing the token.
func SubscriptionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httpx.IdentityFromContext(r.Context())
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "No identity in request.")
			return
		}

		httpx.WriteJSON(w, http.StatusOK, subscriptionResponse{
			Subject:       id.Subject,
			Tier:          id.Tier,
			EmailVerified: id.EmailVerified,
			Scopes:        id.Scopes,
			TokenExpires:  id.ExpiresAt,
		})
	}
}

type entitlementsResponse struct {
	Tier         string   `json:"tier"`
	Entitlements []string `json:"entitlements"`
}

// EntitlementsHandler maps the caller's tier to the features it unlocks.
func EntitlementsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httpx.IdentityFromContext(r.Context())
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "No identity in request.")
			return
		}

		httpx.WriteJSON(w, http.StatusOK, entitlementsResponse{
			Tier:         id.Tier,
			Entitlements: entitlementsForTier(id.Tier),
		})
	}
}

func entitlementsForTier(tier string) []string {
	switch tier {
	case "pro":
		return []string{"catalog:full", "downloads:offline", "streams:4"}
	case "plus":
		return []string{"catalog:full", "streams:2"}
	default:
		return []string{"catalog:preview", "streams:1"}
	}
}
