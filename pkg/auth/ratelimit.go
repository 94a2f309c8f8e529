package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/playsync/sessiond/pkg/domain"
	"github.com/playsync/sessiond/pkg/store"
)

// Limiter classes. Each class has its own threshold, window and
// counter namespace in the shared store.
const (
	// ClassAPI throttles authenticated host calls.
	ClassAPI = "api"
	// ClassRelay throttles anonymous viewer forwarding requests.
	ClassRelay = "relay"
)

// Default limiter policies.
var (
	DefaultAPIPolicy   = LimitPolicy{Requests: 100, Window: 5 * time.Minute}
	DefaultRelayPolicy = LimitPolicy{Requests: 2, Window: 100 * time.Second}
)

// LimitPolicy is the threshold and window for one limiter class.
type LimitPolicy struct {
	Requests int64
	Window   time.Duration
}

// RateLimiterConfig holds the per-class policies.
type RateLimiterConfig struct {
	Policies map[string]LimitPolicy
	Logger   *slog.Logger
}

// RateLimiter keeps per-identity sliding counters in the shared store
// so the quota holds across processes. The limiter is a protective
// layer, not a correctness boundary: store failures fail open.
type RateLimiter struct {
	policies map[string]LimitPolicy
	store    store.Store
	logger   *slog.Logger
}

// NewRateLimiter creates a rate limiter over the given store.
func NewRateLimiter(config RateLimiterConfig, st store.Store) *RateLimiter {
	policies := config.Policies
	if policies == nil {
		policies = map[string]LimitPolicy{
			ClassAPI:   DefaultAPIPolicy,
			ClassRelay: DefaultRelayPolicy,
		}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{policies: policies, store: st, logger: logger}
}

// Check counts one call for identity under class. It returns nil when
// the call is within quota and a *domain.RateLimitError carrying a
// retry hint when it is not. The increment, the conditional expiry and
// the TTL read happen as one atomic store operation.
func (l *RateLimiter) Check(ctx context.Context, class, identity string) error {
	policy, ok := l.policies[class]
	if !ok {
		return nil
	}

	count, remaining, err := l.store.IncrWindow(ctx, "ratelimit:"+class+":"+identity, policy.Window)
	if err != nil {
		// store failures fail open
		if !errors.Is(err, domain.ErrStoreDisabled) {
			l.logger.Warn("rate check unavailable, allowing request",
				"class", class,
				"error", err,
			)
		}
		return nil
	}

	if count > policy.Requests {
		return &domain.RateLimitError{Class: class, RetryAfter: remaining}
	}
	return nil
}
