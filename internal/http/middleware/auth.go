package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/playsync/sessiond/internal/httputil"
	"github.com/playsync/sessiond/pkg/auth"
)

type contextKey string

const (
	// SubjectKey is the context key for the verified caller identity.
	SubjectKey contextKey = "subject"
	// RequestIDKey is the context key for the request id.
	RequestIDKey contextKey = "request_id"
)

// devSubject identifies requests admitted without credentials when the
// service runs in dev mode.
const devSubject = "dev"

// Identity creates middleware that resolves the Authorization bearer
// to a subject id through the external identity provider. In dev mode
// requests without credentials are admitted under a fixed subject so
// local clients need no real provider account.
func Identity(verifier auth.IdentityVerifier, provider string, devMode bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					tokenString = parts[1]
				}
			}

			if tokenString == "" {
				if devMode {
					ctx := context.WithValue(r.Context(), SubjectKey, devSubject)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				httputil.Error(w, http.StatusUnauthorized, "missing authorization")
				return
			}

			subject, err := verifier.Verify(r.Context(), provider, tokenString)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid credentials")
				return
			}

			ctx := context.WithValue(r.Context(), SubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject extracts the verified subject from the request context.
func GetSubject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectKey).(string)
	return subject, ok
}
