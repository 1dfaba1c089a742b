package http

import (
	"net/http"
	"time"

	"github.com/harborview/identity/internal/identity/store"
	"github.com/harborview/identity/pkg/httpx"
	"github.com/harborview/identity/pkg/jwtx"
)

type healthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// HealthzHandler reports whether the issuer can actually do its job:
// database reachable and at least one signing key loaded.
func HealthzHandler(startTime time.Time, version string, st store.Store, keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		}

		if err := st.Ping(r.Context()); err != nil {
			resp.Status = "database unreachable"
			httpx.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		if !keys.IsReady() {
			resp.Status = "no signing keys"
			httpx.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}
