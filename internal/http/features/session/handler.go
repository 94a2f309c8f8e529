package session

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/playsync/sessiond/internal/httputil"
	"github.com/playsync/sessiond/pkg/auth"
	"github.com/playsync/sessiond/pkg/domain"
)

// SessionTokenHeader carries the bearer credential binding a request
// to its session, separate from the Authorization header which holds
// the caller's external identity credential.
const SessionTokenHeader = "X-Session-Token"

// Handler handles the host-facing session endpoints.
type Handler struct {
	logger   *slog.Logger
	sessions *auth.SessionService
}

// NewHandler creates a session handler.
func NewHandler(logger *slog.Logger, sessions *auth.SessionService) *Handler {
	return &Handler{logger: logger, sessions: sessions}
}

// RefreshRequest is the optional refresh body.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Start creates a listening session.
// POST /v1/sessions
//
// The body is optional: a host may open a session empty and publish
// its first state later, or include an initial playback state.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var initial *domain.PlaybackState
	if len(body) > 0 {
		if !httputil.IsJSONContentType(r) {
			httputil.Error(w, http.StatusUnsupportedMediaType, "expected application/json")
			return
		}
		var state domain.PlaybackState
		if err := json.Unmarshal(body, &state); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		// an empty object means "no initial state", not a bad one
		if !state.IsEmpty() {
			if err := state.Validate(); err != nil {
				httputil.Error(w, http.StatusBadRequest, err.Error())
				return
			}
			initial = &state
		}
	}

	grant, err := h.sessions.Start(r.Context(), initial)
	if err != nil {
		h.logger.Error("session start failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	httputil.JSON(w, http.StatusCreated, grant)
}

// Update authorizes and forwards a playback state update.
// POST /v1/sessions/update
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	credential := r.Header.Get(SessionTokenHeader)
	if credential == "" {
		httputil.Error(w, http.StatusForbidden, "missing session token")
		return
	}
	if !httputil.IsJSONContentType(r) {
		httputil.Error(w, http.StatusUnsupportedMediaType, "expected application/json")
		return
	}

	var state domain.PlaybackState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if state.IsEmpty() {
		httputil.Error(w, http.StatusBadRequest, "empty body")
		return
	}
	if err := state.Validate(); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.sessions.AuthorizeUpdate(r.Context(), credential, &state); err != nil {
		httputil.Error(w, http.StatusUnauthorized, "invalid or expired session token")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Refresh renews a session's bearer credential and, when a refresh
// token is presented, rotates it.
// POST /v1/sessions/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	credential := r.Header.Get(SessionTokenHeader)
	if credential == "" {
		httputil.Error(w, http.StatusForbidden, "missing session token")
		return
	}

	var req RefreshRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	grant, err := h.sessions.Refresh(r.Context(), credential, req.RefreshToken)
	if err != nil {
		h.writeRefreshError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, grant)
}

func (h *Handler) writeRefreshError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrGraceExceeded):
		httputil.Error(w, http.StatusUnauthorized, "token exceeds refresh window")
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrTokenExpired):
		httputil.Error(w, http.StatusUnauthorized, "invalid session token")
	case errors.Is(err, domain.ErrRefreshTokenMismatch):
		// a losing rotation race and a replayed token are
		// indistinguishable here
		httputil.Error(w, http.StatusUnauthorized, "refresh token mismatch")
	case errors.Is(err, domain.ErrSessionNotFound):
		httputil.Error(w, http.StatusBadRequest, "session expired")
	default:
		h.logger.Error("session refresh failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to refresh session")
	}
}
