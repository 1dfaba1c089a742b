package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "github.com/harborview/identity/internal/subscription/http"
	"github.com/harborview/identity/pkg/authkit"
	"github.com/harborview/identity/pkg/jwtx"
	"github.com/harborview/identity/pkg/revocation"
	"github.com/harborview/identity/pkg/slogx"
	"github.com/harborview/identity/pkg/tokencache"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application is the downstream subscription service. It holds no signing
// material: access tokens are verified locally against the issuer's
// published keys and the shared revocation registry.
type Application struct {
	cfg    Config
	logger *slog.Logger

	redis    *redis.Client
	verifier *authkit.Verifier

	server *http.Server
}

func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "subscription",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initVerifier(); err != nil {
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// initVerifier assembles the token verification pipeline: key source,
// revocation mirror, and metadata cache.
func (app *Application) initVerifier() error {
	var keys jwtx.KeyResolver

	if app.cfg.PublicKeyFile != "" {
		pemBytes, err := os.ReadFile(app.cfg.PublicKeyFile)
		if err != nil {
			return fmt.Errorf("read public key file: %w", err)
		}
		static, err := authkit.NewStaticKeySource(pemBytes)
		if err != nil {
			return fmt.Errorf("parse public key file: %w", err)
		}
		keys = static
		app.logger.Info("using static trust material", "file", app.cfg.PublicKeyFile)
	} else {
		client := authkit.NewClient(app.cfg.IdentityBaseURL(), app.cfg.FetchTimeout)
		remote := authkit.NewRemoteKeySource(client, app.cfg.KeyCacheTTL)

		// Best effort: a cold cache still self-heals on the first request.
		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.FetchTimeout)
		defer cancel()
		if err := remote.Prime(ctx); err != nil {
			app.logger.Warn("could not prime key cache, will retry on first request", "err", err)
		}

		keys = remote
		app.logger.Info("fetching trust material from issuer", "jwks_url", app.cfg.JWKSURL)
	}

	var registry revocation.Registry
	var metadata tokencache.Cache
	if app.cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr})
		registry = revocation.NewRedisRegistry(app.redis)
		metadata = tokencache.NewRedisCache(app.redis)
		app.logger.Info("shared state via redis", "addr", app.cfg.RedisAddr)
	} else {
		// Without redis this replica cannot observe issuer-side
		// revocations; tokens are still bounded by their short TTL.
		app.logger.Warn("no SUBS_REDIS_ADDR configured, revocations will not be visible")
		registry = revocation.NewMemoryRegistry()
	}

	app.verifier = authkit.NewVerifier(authkit.Config{
		Issuer:      app.cfg.Issuer,
		Keys:        keys,
		Revocations: authkit.NewRevocationMirror(registry, app.cfg.RevocationMirror),
		Metadata:    metadata,
	})
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.verifier, BuildVersion, app.logger)
	router.ApplyRoutes()

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("subscription service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down subscription service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	app.logger.Info("subscription service stopped")
	return nil
}
