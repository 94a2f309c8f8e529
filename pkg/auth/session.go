package auth

import (
	"context"
	"log/slog"

	"github.com/playsync/sessiond/pkg/domain"
)

// Publisher forwards playback payloads to the fan-out broker. Delivery
// is best-effort from the session lifecycle's point of view.
type Publisher interface {
	Forward(ctx context.Context, state *domain.PlaybackState, routingKey string) error
}

// SessionService orchestrates the session lifecycle: start, refresh
// and authorize-update. It holds no mutable state of its own; all
// cross-request coordination happens in the registry's store.
type SessionService struct {
	tokens    *TokenService
	registry  *SessionRegistry
	publisher Publisher
	logger    *slog.Logger
}

// NewSessionService creates a session lifecycle service.
func NewSessionService(tokens *TokenService, registry *SessionRegistry, publisher Publisher, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		tokens:    tokens,
		registry:  registry,
		publisher: publisher,
		logger:    logger,
	}
}

// Start allocates a session code, registers it with a fresh refresh
// token and issues the first bearer credential. An initial playback
// state, when present, is forwarded best-effort: a broker hiccup must
// not cost the host its new session.
func (s *SessionService) Start(ctx context.Context, initial *domain.PlaybackState) (*domain.SessionGrant, error) {
	refreshToken, err := GenerateToken(refreshTokenLen)
	if err != nil {
		return nil, err
	}

	code, err := s.registry.Allocate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(code)
	if err != nil {
		return nil, err
	}

	if initial != nil {
		if err := s.publisher.Forward(ctx, initial, code); err != nil {
			s.logger.Error("initial state forward failed", "session", code, "error", err)
		}
	}

	return &domain.SessionGrant{
		Token:        token,
		Session:      code,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.tokens.TokenTTL().Seconds()),
	}, nil
}

// AuthorizeUpdate verifies a bearer credential strictly and forwards
// the payload to the session's channel. Sink failures are logged and
// swallowed; the host's update call still succeeds.
func (s *SessionService) AuthorizeUpdate(ctx context.Context, credential string, state *domain.PlaybackState) (string, error) {
	claims, err := s.tokens.Verify(credential)
	if err != nil {
		return "", err
	}

	if err := s.publisher.Forward(ctx, state, claims.Session); err != nil {
		s.logger.Error("update forward failed", "session", claims.Session, "error", err)
	}
	return claims.Session, nil
}

// Refresh renews a session's bearer credential. The presented
// credential may be expired as long as it is within the grace window.
//
// With a refresh token the stored one is rotated atomically and a new
// refresh token is returned alongside the credential. Without one the
// session TTL is merely touched and no refresh token is issued.
func (s *SessionService) Refresh(ctx context.Context, credential, refreshToken string) (*domain.SessionGrant, error) {
	claims, err := s.tokens.VerifyExpired(credential)
	if err != nil {
		return nil, err
	}
	code := claims.Session

	grant := &domain.SessionGrant{
		Session:   code,
		ExpiresIn: int(s.tokens.TokenTTL().Seconds()),
	}

	if refreshToken == "" {
		if err := s.registry.Touch(ctx, code); err != nil {
			return nil, err
		}
	} else {
		next, err := GenerateToken(refreshTokenLen)
		if err != nil {
			return nil, err
		}
		if err := s.registry.Rotate(ctx, code, refreshToken, next); err != nil {
			return nil, err
		}
		grant.RefreshToken = next
	}

	token, err := s.tokens.Issue(code)
	if err != nil {
		return nil, err
	}
	grant.Token = token
	return grant, nil
}
