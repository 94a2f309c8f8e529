package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/playsync/sessiond/internal/httputil"
	"github.com/playsync/sessiond/pkg/auth"
	"github.com/playsync/sessiond/pkg/domain"
)

// EdgeRateLimit creates the in-process per-IP limiter that sits in
// front of everything. It is a blunt local guard against floods; the
// per-subject quotas live in Quota.
func EdgeRateLimit(requestsPerMinute int, logger *slog.Logger) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if logger != nil {
				logger.Warn("edge rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "too many requests")
		}),
	)
}

// Quota creates middleware enforcing the distributed per-subject
// limiter for one class. The counter is shared across processes, so
// the quota holds no matter which replica serves the call.
func Quota(limiter *auth.RateLimiter, class string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetSubject(r.Context())
			if !ok {
				identity = r.RemoteAddr
			}

			err := limiter.Check(r.Context(), class, identity)
			var rle *domain.RateLimitError
			if errors.As(err, &rle) {
				if logger != nil {
					logger.Warn("quota exceeded",
						"class", class,
						"subject", identity,
						"retry_after", rle.RetryAfter,
					)
				}
				httputil.SetRetryAfter(w, rle.RetryAfter)
				httputil.Error(w, http.StatusTooManyRequests, "too many calls")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
