package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/harborview/identity/pkg/authkit"
	"github.com/harborview/identity/pkg/httpx"
	"github.com/harborview/identity/pkg/slogx"
)

// Router holds shared dependencies for the subscription service handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     *authkit.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
}

func NewRouter(verifier *authkit.Verifier, buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) ApplyRoutes() {
	// GET /v1/subscription - the caller's own subscription state, straight
	// from the verified identity. Local verification only; no issuer call.
	r.Mux.Handle("GET /v1/subscription",
		httpx.Chain(SubscriptionHandler(),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope("subscription:read"),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// GET /v1/entitlements - tier-derived feature flags.
	r.Mux.Handle("GET /v1/entitlements",
		httpx.Chain(EntitlementsHandler(),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope("subscription:read"),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /healthz",
		httpx.Chain(HealthzHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
