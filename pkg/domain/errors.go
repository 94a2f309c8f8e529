package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Session and credential errors
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrCodeCollision        = errors.New("session code already in use")
	ErrRefreshTokenMismatch = errors.New("refresh token mismatch")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrGraceExceeded        = errors.New("token exceeds refresh window")
	ErrIdentityRejected     = errors.New("identity verification failed")
)

// Store errors
var (
	ErrNotFound         = errors.New("key not found")
	ErrStoreDisabled    = errors.New("store disabled")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// RateLimitError reports quota exhaustion for one limiter class.
// RetryAfter is the remaining time until the counter window resets.
type RateLimitError struct {
	Class      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for class %q, retry after %s", e.Class, e.RetryAfter)
}

// ValidationError collects all field-level problems in a payload.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid payload"
	}
	return strings.Join(e.Issues, "; ")
}
