package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playsync/sessiond/internal/httputil"
	"github.com/playsync/sessiond/pkg/auth"
	"github.com/playsync/sessiond/pkg/domain"
)

// Forwarder relays a viewer request to a session host's channel.
type Forwarder interface {
	ForwardRequest(ctx context.Context, request, session string) error
}

// Handler handles the viewer-facing relay endpoint. Viewers are not
// session members: they authenticate with a provider credential and
// are throttled tightly per subject.
type Handler struct {
	logger    *slog.Logger
	verifier  auth.IdentityVerifier
	limiter   *auth.RateLimiter
	forwarder Forwarder
}

// NewHandler creates a relay handler.
func NewHandler(logger *slog.Logger, verifier auth.IdentityVerifier, limiter *auth.RateLimiter, forwarder Forwarder) *Handler {
	return &Handler{
		logger:    logger,
		verifier:  verifier,
		limiter:   limiter,
		forwarder: forwarder,
	}
}

// RelayRequest is the viewer request body.
type RelayRequest struct {
	Provider string `json:"provider"`
	Token    string `json:"token"`
	Request  string `json:"request"`
	Session  string `json:"session"`
}

// Relay verifies a viewer's provider credential and forwards their
// request to the session host.
// POST /v1/relay
func (h *Handler) Relay(w http.ResponseWriter, r *http.Request) {
	var req RelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Request == "" || req.Session == "" {
		httputil.Error(w, http.StatusBadRequest, "request and session are required")
		return
	}

	subject, err := h.verifier.Verify(r.Context(), req.Provider, req.Token)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid provider or token")
		return
	}

	err = h.limiter.Check(r.Context(), auth.ClassRelay, subject)
	var rle *domain.RateLimitError
	if errors.As(err, &rle) {
		httputil.SetRetryAfter(w, rle.RetryAfter)
		httputil.Error(w, http.StatusTooManyRequests, "too many calls")
		return
	}

	if err := h.forwarder.ForwardRequest(r.Context(), req.Request, req.Session); err != nil {
		h.logger.Error("relay forward failed", "session", req.Session, "error", err)
		httputil.Error(w, http.StatusBadGateway, "failed to reach session")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
