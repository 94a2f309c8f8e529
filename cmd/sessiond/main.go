package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/playsync/sessiond/internal/config"
	httpserver "github.com/playsync/sessiond/internal/http"
	"github.com/playsync/sessiond/internal/publish"
	"github.com/playsync/sessiond/pkg/auth"
	"github.com/playsync/sessiond/pkg/store"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Pick the store backend
	var st store.Store
	switch {
	case cfg.HasRedis():
		rs := store.NewRedis(store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rs.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer rs.Close()
		st = rs
		logger.Info("connected to redis", "addr", cfg.RedisAddr)
	case cfg.DevMode:
		st = store.NewMemory()
		logger.Info("using in-memory store (dev mode)")
	default:
		st = store.Disabled{}
		logger.Warn("no store configured: sessions are uncoordinated and rate limits are off")
	}

	// Initialize services
	tokenService := auth.NewTokenService(auth.TokenConfig{
		Secret:       []byte(cfg.SigningSecret),
		TokenTTL:     cfg.TokenTTL,
		RefreshGrace: cfg.RefreshGrace,
	})
	registry := auth.NewSessionRegistry(auth.RegistryConfig{
		SessionTTL:   cfg.SessionTTL,
		CodeLength:   cfg.CodeLength,
		CodeAlphabet: cfg.CodeAlphabet,
	}, st)
	rateLimiter := auth.NewRateLimiter(auth.RateLimiterConfig{
		Policies: map[string]auth.LimitPolicy{
			auth.ClassAPI:   {Requests: int64(cfg.APILimit), Window: cfg.APILimitWindow},
			auth.ClassRelay: {Requests: int64(cfg.RelayLimit), Window: cfg.RelayLimitWindow},
		},
		Logger: logger,
	}, st)

	publisher := publish.NewService(publish.Config{
		BaseURL: cfg.PubSubURL,
		Secret:  cfg.PubSubSecret,
	}, logger)
	if !publisher.Enabled() {
		logger.Warn("publish sink not configured, payloads will be dropped")
	}

	sessionService := auth.NewSessionService(tokenService, registry, publisher, logger)
	verifier := auth.NewProviderVerifier(auth.ProviderVerifierConfig{})

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:                logger,
		SessionService:        sessionService,
		RateLimiter:           rateLimiter,
		IdentityVerifier:      verifier,
		IdentityProvider:      auth.ProviderGoogle,
		Forwarder:             publisher,
		DevMode:               cfg.DevMode,
		CORSAllowedOrigins:    cfg.CORSAllowedOrigins,
		EdgeRequestsPerMinute: cfg.EdgeRequestsPerMinute,
		MaxRequestBodySize:    cfg.MaxRequestBodySize,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr, "dev_mode", cfg.DevMode)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
