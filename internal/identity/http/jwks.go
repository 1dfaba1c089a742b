package http

import (
	"net/http"

	"github.com/harborview/identity/pkg/httpx"
	"github.com/harborview/identity/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery.
// Downstream verifiers poll this and reconstruct RSA keys from the n/e
// parameters.
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, keys.PublicJWKS())
	}
}
