package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/playsync/sessiond/pkg/domain"
)

const (
	googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	twitchValidateURL  = "https://id.twitch.tv/oauth2/validate"
)

// Identity providers accepted from callers.
const (
	ProviderGoogle = "google"
	ProviderTwitch = "twitch"
)

// IdentityVerifier maps an opaque external credential to a stable
// subject id, or rejects it.
type IdentityVerifier interface {
	Verify(ctx context.Context, provider, token string) (string, error)
}

// ProviderVerifierConfig allows overriding the provider endpoints,
// mainly for tests.
type ProviderVerifierConfig struct {
	GoogleTokenInfoURL string
	TwitchValidateURL  string
}

// ProviderVerifier verifies credentials against the providers' public
// token-info endpoints. The providers own the verification semantics;
// this client only extracts a subject id.
type ProviderVerifier struct {
	config     ProviderVerifierConfig
	httpClient *http.Client
}

// NewProviderVerifier creates a provider verifier.
func NewProviderVerifier(config ProviderVerifierConfig) *ProviderVerifier {
	if config.GoogleTokenInfoURL == "" {
		config.GoogleTokenInfoURL = googleTokenInfoURL
	}
	if config.TwitchValidateURL == "" {
		config.TwitchValidateURL = twitchValidateURL
	}
	return &ProviderVerifier{
		config:     config,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify checks token with the named provider and returns the subject
// id it vouches for.
func (v *ProviderVerifier) Verify(ctx context.Context, provider, token string) (string, error) {
	switch provider {
	case ProviderGoogle:
		return v.verifyGoogle(ctx, token)
	case ProviderTwitch:
		return v.verifyTwitch(ctx, token)
	default:
		return "", fmt.Errorf("%w: unknown provider %q", domain.ErrIdentityRejected, provider)
	}
}

func (v *ProviderVerifier) verifyGoogle(ctx context.Context, token string) (string, error) {
	reqURL := v.config.GoogleTokenInfoURL + "?" + url.Values{"id_token": {token}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", err
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := v.do(req, &info); err != nil {
		return "", err
	}
	if info.Email == "" {
		return "", fmt.Errorf("%w: token info carried no email", domain.ErrIdentityRejected)
	}
	return info.Email, nil
}

func (v *ProviderVerifier) verifyTwitch(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.TwitchValidateURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var info struct {
		UserID string `json:"user_id"`
	}
	if err := v.do(req, &info); err != nil {
		return "", err
	}
	if info.UserID == "" {
		return "", fmt.Errorf("%w: validate response carried no user_id", domain.ErrIdentityRejected)
	}
	return info.UserID, nil
}

func (v *ProviderVerifier) do(req *http.Request, out any) error {
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIdentityRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: provider returned %d", domain.ErrIdentityRejected, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIdentityRejected, err)
	}
	return nil
}
