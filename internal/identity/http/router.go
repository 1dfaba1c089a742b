package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/harborview/identity/internal/identity/service"
	"github.com/harborview/identity/internal/identity/store"
	"github.com/harborview/identity/pkg/httpx"
	"github.com/harborview/identity/pkg/jwtx"
	"github.com/harborview/identity/pkg/slogx"
)

// Router holds shared dependencies for the issuer's HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store        store.Store
	TokenService *service.TokenService
}

func NewRouter(
	keys *jwtx.KeySet,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
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
	r.registerTokens()
	r.registerTrustMaterial()
	r.registerSystem()
}

func (r *Router) registerTokens() {
	// POST /internal/v1/token/issue - trusted-network endpoint; callers are
	// sibling services, so moderate rather than strict.
	issueHandler := &IssueHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /internal/v1/token/issue",
		httpx.Chain(issueHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /internal/v1/validate - issuing-side introspection.
	validateHandler := &ValidateHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /internal/v1/validate",
		httpx.Chain(validateHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /v1/token/refresh - strict limit; each call consumes a credential.
	refreshHandler := &RefreshHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/token/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /v1/token/revoke - idempotent, moderate limit.
	revokeHandler := &RevokeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/token/revoke",
		httpx.Chain(revokeHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /v1/token/revoke-all - session teardown for the caller's subject.
	revokeAllHandler := &RevokeAllHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/token/revoke-all",
		httpx.Chain(revokeAllHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /v1/logout - ends a single session.
	logoutHandler := &LogoutHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerTrustMaterial() {
	// Public discovery endpoints, polled by every downstream verifier.
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	r.Mux.Handle("GET /v1/keys/public.pem",
		httpx.Chain(PublicKeyPEMHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /healthz",
		httpx.Chain(HealthzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
