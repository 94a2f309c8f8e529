package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/playsync/sessiond/pkg/domain"
	"github.com/playsync/sessiond/pkg/store"
)

const (
	// DefaultSessionTTL is how long a session lives without a refresh.
	DefaultSessionTTL = time.Hour
	// DefaultCodeLength is the session code length.
	DefaultCodeLength = 5
	// DefaultCodeAlphabet is the session code alphabet. Short and
	// human-typeable; collisions are expected and handled.
	DefaultCodeAlphabet = "abcdefghijklmnopqrstuwxyz0123456789-"

	sessionKeyPrefix = "session:"

	// maxAllocateAttempts bounds the generate-and-create loop so a
	// saturated keyspace or misbehaving store cannot spin forever.
	maxAllocateAttempts = 32

	refreshTokenLen = 32
)

// RegistryConfig holds session registry configuration.
type RegistryConfig struct {
	SessionTTL   time.Duration
	CodeLength   int
	CodeAlphabet string
}

// SessionRegistry owns the session-code lifecycle in the shared store:
// collision-free creation, single-use refresh-token rotation and TTL
// renewal. Every mutation is a single atomic store operation.
type SessionRegistry struct {
	config RegistryConfig
	store  store.Store
}

// NewSessionRegistry creates a session registry.
func NewSessionRegistry(config RegistryConfig, st store.Store) *SessionRegistry {
	if config.SessionTTL == 0 {
		config.SessionTTL = DefaultSessionTTL
	}
	if config.CodeLength == 0 {
		config.CodeLength = DefaultCodeLength
	}
	if config.CodeAlphabet == "" {
		config.CodeAlphabet = DefaultCodeAlphabet
	}
	return &SessionRegistry{config: config, store: st}
}

// SessionTTL returns the configured session lifetime.
func (r *SessionRegistry) SessionTTL() time.Duration {
	return r.config.SessionTTL
}

// Create claims code for a new session holding refreshToken. The store
// performs the liveness check and the write as one step; TTL expiry is
// the only thing that frees a code again.
func (r *SessionRegistry) Create(ctx context.Context, code, refreshToken string) error {
	ok, err := r.store.CreateIfAbsent(ctx, sessionKeyPrefix+code, HashToken(refreshToken), r.config.SessionTTL)
	if err != nil {
		return storeErr("create session", err)
	}
	if !ok {
		return domain.ErrCodeCollision
	}
	return nil
}

// Rotate atomically replaces the session's refresh token iff presented
// matches the stored one, renewing the TTL in the same operation. Two
// concurrent rotations with the same presented token are serialized by
// the store: exactly one wins, the other observes a mismatch.
func (r *SessionRegistry) Rotate(ctx context.Context, code, presented, next string) error {
	res, err := r.store.CompareAndSwap(ctx, sessionKeyPrefix+code, HashToken(presented), HashToken(next), r.config.SessionTTL)
	if err != nil {
		return storeErr("rotate refresh token", err)
	}
	switch res {
	case store.CASAbsent:
		return domain.ErrSessionNotFound
	case store.CASMismatch:
		return domain.ErrRefreshTokenMismatch
	default:
		return nil
	}
}

// Touch renews the session TTL without rotating the refresh token.
// This is the reduced-trust refresh path: the stored token, if any,
// stays valid.
func (r *SessionRegistry) Touch(ctx context.Context, code string) error {
	ok, err := r.store.Touch(ctx, sessionKeyPrefix+code, r.config.SessionTTL)
	if err != nil {
		return storeErr("touch session", err)
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Allocate generates codes until one is claimed for refreshToken.
// Collisions are retried with a fresh draw; store failures abort
// immediately since the registry cannot guess whether a write landed.
func (r *SessionRegistry) Allocate(ctx context.Context, refreshToken string) (string, error) {
	for attempt := 0; attempt < maxAllocateAttempts; attempt++ {
		code, err := r.generateCode()
		if err != nil {
			return "", err
		}
		err = r.Create(ctx, code, refreshToken)
		if err == nil {
			return code, nil
		}
		if errors.Is(err, domain.ErrCodeCollision) {
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("%w: gave up after %d attempts", domain.ErrCodeCollision, maxAllocateAttempts)
}

func (r *SessionRegistry) generateCode() (string, error) {
	alphabet := r.config.CodeAlphabet
	max := big.NewInt(int64(len(alphabet)))
	code := make([]byte, r.config.CodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code), nil
}

// storeErr folds transport failures into the store-unavailable bucket.
// A disabled store never reaches here for registry writes: the
// Disabled backend admits them so local single-instance setups work.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
}
