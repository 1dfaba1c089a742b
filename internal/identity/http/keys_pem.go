package http

import (
	"net/http"

	"github.com/harborview/identity/pkg/jwtx"
	"github.com/harborview/identity/pkg/slogx"
)

// PublicKeyPEMHandler serves GET /v1/keys/public.pem: a single public key
// as PKIX PEM for consumers that want file-style trust material instead
// of a JWKS. An absent kid query parameter selects the current default
// key; an unknown kid is 404.
func PublicKeyPEMHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kid := r.URL.Query().Get("kid")

		jwks := keys.PublicJWKS()
		if len(jwks.Keys) == 0 {
			http.Error(w, "no keys available", http.StatusServiceUnavailable)
			return
		}

		jwk := jwks.Keys[0]
		if kid != "" {
			found := false
			for _, k := range jwks.Keys {
				if k.Kid == kid {
					jwk = k
					found = true
					break
				}
			}
			if !found {
				http.NotFound(w, r)
				return
			}
		}

		pemStr, err := jwk.PEM()
		if err != nil {
			slogx.FromContext(r.Context()).Error("render key PEM", "err", err, "kid", jwk.Kid)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/x-pem-file")
		w.Header().Set("X-Key-ID", jwk.Kid)
		_, _ = w.Write([]byte(pemStr))
	}
}
