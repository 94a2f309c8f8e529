package session

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/playsync/sessiond/pkg/auth"
	"github.com/playsync/sessiond/pkg/domain"
	"github.com/playsync/sessiond/pkg/store"
)

type nopPublisher struct{}

func (nopPublisher) Forward(context.Context, *domain.PlaybackState, string) error { return nil }

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	tokens := auth.NewTokenService(auth.TokenConfig{Secret: []byte("handler-test-secret")})
	registry := auth.NewSessionRegistry(auth.RegistryConfig{}, store.NewMemory())
	sessions := auth.NewSessionService(tokens, registry, nopPublisher{}, logger)
	return NewHandler(logger, sessions)
}

const validPlayback = `{"timestamp":1700000000000,"uri":"spotify:track:4uLU6hMCjMI75M1A2tKUQC","position":0,"playing":true}`

func startSession(t *testing.T, h *Handler) domain.SessionGrant {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	rec := httptest.NewRecorder()
	h.Start(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Start status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	var grant domain.SessionGrant
	if err := json.NewDecoder(rec.Body).Decode(&grant); err != nil {
		t.Fatalf("decoding grant: %v", err)
	}
	return grant
}

func TestStart_NoPayload(t *testing.T) {
	h := newTestHandler(t)
	grant := startSession(t, h)

	if grant.ExpiresIn != 1800 {
		t.Errorf("expiresIn = %d, want 1800", grant.ExpiresIn)
	}
	if len(grant.Session) != auth.DefaultCodeLength {
		t.Errorf("session code %q, want length %d", grant.Session, auth.DefaultCodeLength)
	}
	for _, c := range grant.Session {
		if !strings.ContainsRune(auth.DefaultCodeAlphabet, c) {
			t.Errorf("session code %q contains %q outside the alphabet", grant.Session, c)
		}
	}
	if grant.Token == "" || grant.RefreshToken == "" {
		t.Error("grant missing token or refresh token")
	}
}

func TestStart_PayloadValidation(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		contentType    string
		expectedStatus int
	}{
		{
			name:           "valid initial payload",
			body:           validPlayback,
			contentType:    "application/json",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "empty object is treated as no payload",
			body:           `{}`,
			contentType:    "application/json",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "body without json content type",
			body:           validPlayback,
			contentType:    "text/plain",
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "malformed json",
			body:           `{invalid}`,
			contentType:    "application/json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid playback state",
			body:           `{"timestamp":123,"uri":"http://nope","position":0,"playing":true}`,
			contentType:    "application/json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t)
			req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()

			h.Start(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.expectedStatus, rec.Body.String())
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	h := newTestHandler(t)
	grant := startSession(t, h)

	tests := []struct {
		name           string
		token          string
		body           string
		contentType    string
		expectedStatus int
	}{
		{
			name:           "ok",
			token:          grant.Token,
			body:           validPlayback,
			contentType:    "application/json",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing session token",
			token:          "",
			body:           validPlayback,
			contentType:    "application/json",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "wrong content type",
			token:          grant.Token,
			body:           validPlayback,
			contentType:    "text/plain",
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "empty body",
			token:          grant.Token,
			body:           `{}`,
			contentType:    "application/json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bogus credential",
			token:          "bogus",
			body:           validPlayback,
			contentType:    "application/json",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/sessions/update", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			if tt.token != "" {
				req.Header.Set(SessionTokenHeader, tt.token)
			}
			rec := httptest.NewRecorder()

			h.Update(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.expectedStatus, rec.Body.String())
			}
		})
	}
}

func TestRefresh_RotatesAndRejectsReuse(t *testing.T) {
	h := newTestHandler(t)
	grant := startSession(t, h)

	refresh := func(token, refreshToken string) *httptest.ResponseRecorder {
		var body *bytes.Buffer
		if refreshToken != "" {
			body = bytes.NewBufferString(`{"refreshToken":"` + refreshToken + `"}`)
		} else {
			body = bytes.NewBufferString("")
		}
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions/refresh", body)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set(SessionTokenHeader, token)
		}
		rec := httptest.NewRecorder()
		h.Refresh(rec, req)
		return rec
	}

	// rotate
	rec := refresh(grant.Token, grant.RefreshToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	var renewed domain.SessionGrant
	json.NewDecoder(rec.Body).Decode(&renewed)
	if renewed.RefreshToken == "" || renewed.RefreshToken == grant.RefreshToken {
		t.Error("refresh token was not rotated")
	}
	if renewed.Session != grant.Session {
		t.Errorf("session changed: %q -> %q", grant.Session, renewed.Session)
	}

	// the rotated-away token is rejected
	rec = refresh(renewed.Token, grant.RefreshToken)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("reused refresh token status = %d, want 401", rec.Code)
	}

	// reduced-trust path: no refresh token presented, none issued
	rec = refresh(renewed.Token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("touch refresh status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	var touched domain.SessionGrant
	json.NewDecoder(rec.Body).Decode(&touched)
	if touched.RefreshToken != "" {
		t.Error("reduced-trust refresh issued a refresh token")
	}

	// missing session token header
	rec = refresh("", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("missing header status = %d, want 403", rec.Code)
	}

	// garbage credential
	rec = refresh("garbage", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage credential status = %d, want 401", rec.Code)
	}
}
