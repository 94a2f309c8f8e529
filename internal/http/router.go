package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/playsync/sessiond/internal/http/features/relay"
	"github.com/playsync/sessiond/internal/http/features/session"
	"github.com/playsync/sessiond/internal/http/middleware"
	"github.com/playsync/sessiond/internal/httputil"
	"github.com/playsync/sessiond/pkg/auth"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger                *slog.Logger
	SessionService        *auth.SessionService
	RateLimiter           *auth.RateLimiter
	IdentityVerifier      auth.IdentityVerifier
	IdentityProvider      string
	Forwarder             relay.Forwarder
	DevMode               bool
	CORSAllowedOrigins    []string
	EdgeRequestsPerMinute int
	MaxRequestBodySize    int64
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", session.SessionTokenHeader},
		MaxAge:         7200,
	}))
	r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBodySize))
	r.Use(middleware.EdgeRateLimit(cfg.EdgeRequestsPerMinute, cfg.Logger))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Host-facing session endpoints: external identity first, then the
	// shared per-subject quota, then the lifecycle operation.
	sessionHandler := session.NewHandler(cfg.Logger, cfg.SessionService)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(cfg.IdentityVerifier, cfg.IdentityProvider, cfg.DevMode))
		r.Use(middleware.Quota(cfg.RateLimiter, auth.ClassAPI, cfg.Logger))
		r.Post("/v1/sessions", sessionHandler.Start)
		r.Post("/v1/sessions/update", sessionHandler.Update)
		r.Post("/v1/sessions/refresh", sessionHandler.Refresh)
	})

	// Viewer-facing relay: the provider credential travels in the body,
	// so identity and quota are checked inside the handler.
	relayHandler := relay.NewHandler(cfg.Logger, cfg.IdentityVerifier, cfg.RateLimiter, cfg.Forwarder)
	r.Post("/v1/relay", relayHandler.Relay)

	return r
}
