package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/playsync/sessiond/pkg/auth"
	"github.com/playsync/sessiond/pkg/store"
)

func newQuotaHandler(t *testing.T, limit int64) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	limiter := auth.NewRateLimiter(auth.RateLimiterConfig{
		Logger: logger,
		Policies: map[string]auth.LimitPolicy{
			auth.ClassAPI: {Requests: limit, Window: time.Minute},
		},
	}, store.NewMemory())

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return Quota(limiter, auth.ClassAPI, logger)(ok)
}

func quotaCall(h http.Handler, subject string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	if subject != "" {
		req = req.WithContext(context.WithValue(req.Context(), SubjectKey, subject))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQuota_EnforcesPerSubject(t *testing.T) {
	h := newQuotaHandler(t, 2)

	for i := 0; i < 2; i++ {
		if rec := quotaCall(h, "host-a"); rec.Code != http.StatusOK {
			t.Fatalf("call %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := quotaCall(h, "host-a")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over-quota status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("throttled response missing Retry-After header")
	}

	if rec := quotaCall(h, "host-b"); rec.Code != http.StatusOK {
		t.Errorf("other subject status = %d, want 200", rec.Code)
	}
}

func TestQuota_FallsBackToRemoteAddr(t *testing.T) {
	h := newQuotaHandler(t, 1)

	if rec := quotaCall(h, ""); rec.Code != http.StatusOK {
		t.Fatalf("first call status = %d, want 200", rec.Code)
	}
	if rec := quotaCall(h, ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second call status = %d, want 429", rec.Code)
	}
}

func TestEdgeRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := EdgeRateLimit(2, logger)(ok)

	call := func() int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := call(); code != http.StatusOK {
			t.Fatalf("call %d status = %d, want 200", i+1, code)
		}
	}
	if code := call(); code != http.StatusTooManyRequests {
		t.Errorf("third call status = %d, want 429", code)
	}
}
