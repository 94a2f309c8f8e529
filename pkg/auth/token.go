package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/playsync/sessiond/pkg/domain"
)

const (
	// tokenSubject discriminates session bearer credentials from any
	// other token signed in the same domain.
	tokenSubject = "session"

	// DefaultTokenTTL is the bearer credential lifetime.
	DefaultTokenTTL = 30 * time.Minute
	// DefaultRefreshGrace is how long past expiry a credential may
	// still be presented on the refresh path.
	DefaultRefreshGrace = 30 * time.Minute
)

// SessionClaims are the claims carried by a bearer credential.
type SessionClaims struct {
	jwt.RegisteredClaims
	Session string `json:"session"`
}

// TokenConfig holds signing configuration.
type TokenConfig struct {
	Secret       []byte
	TokenTTL     time.Duration
	RefreshGrace time.Duration
}

// TokenService signs and verifies bearer credentials binding a session
// code and expiry. It is stateless: validity is a pure function of the
// secret and the claims.
type TokenService struct {
	config TokenConfig
}

// NewTokenService creates a token service.
func NewTokenService(config TokenConfig) *TokenService {
	if config.TokenTTL == 0 {
		config.TokenTTL = DefaultTokenTTL
	}
	if config.RefreshGrace == 0 {
		config.RefreshGrace = DefaultRefreshGrace
	}
	return &TokenService{config: config}
}

// TokenTTL returns the bearer credential lifetime.
func (s *TokenService) TokenTTL() time.Duration {
	return s.config.TokenTTL
}

// Issue signs a new bearer credential for the given session code.
func (s *TokenService) Issue(code string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tokenSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
		},
		Session: code,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.config.Secret)
}

// Verify validates a credential strictly: bad signature, wrong subject
// and expiry are all rejected. Used to authorize updates.
func (s *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, s.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}
	return s.checkClaims(token)
}

// VerifyExpired validates a credential tolerating expiry, so a client
// whose bearer just lapsed can still prove which session it belongs
// to. The credential must still be within the refresh grace window.
func (s *TokenService) VerifyExpired(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, s.keyFunc, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	claims, err := s.checkClaims(token)
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil {
		return nil, domain.ErrInvalidToken
	}
	if time.Since(claims.ExpiresAt.Time) > s.config.RefreshGrace {
		return nil, domain.ErrGraceExceeded
	}
	return claims, nil
}

func (s *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, domain.ErrInvalidToken
	}
	return s.config.Secret, nil
}

func (s *TokenService) checkClaims(token *jwt.Token) (*SessionClaims, error) {
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.Subject != tokenSubject || claims.Session == "" {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
