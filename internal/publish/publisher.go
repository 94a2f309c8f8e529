// Package publish is the client for the downstream fan-out broker.
// The broker owns delivery semantics; this client only gets payloads
// onto the wire and reports whether the broker accepted them.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/playsync/sessiond/pkg/domain"
)

// hostChannelPrefix routes viewer requests to the session host's
// private channel rather than the public session channel.
const hostChannelPrefix = "host_"

// Config holds broker connection settings. An empty BaseURL disables
// publishing: payloads are logged and dropped, which is the intended
// local-development mode.
type Config struct {
	BaseURL string
	Secret  string
}

// Service publishes payloads to the broker.
type Service struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewService creates a publisher.
func NewService(config Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config:     config,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Enabled reports whether a broker is configured.
func (s *Service) Enabled() bool {
	return s.config.BaseURL != ""
}

// Forward publishes a playback state to the channel named by
// routingKey.
func (s *Service) Forward(ctx context.Context, state *domain.PlaybackState, routingKey string) error {
	if !s.Enabled() {
		s.logger.Info("publish disabled, dropping payload", "routing_key", routingKey)
		return nil
	}

	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return s.publish(ctx, routingKey, body)
}

// ForwardRequest relays a viewer request to the session host's
// channel, first probing the channel stats endpoint so requests to
// dead sessions fail fast.
func (s *Service) ForwardRequest(ctx context.Context, request, session string) error {
	if !s.Enabled() {
		s.logger.Info("publish disabled, dropping request", "session", session)
		return nil
	}

	if err := s.channelStats(ctx, session); err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{"request": request})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return s.publish(ctx, hostChannelPrefix+session, body)
}

func (s *Service) publish(ctx context.Context, routingKey string, body []byte) error {
	reqURL := s.config.BaseURL + "/pub?" + url.Values{"id": {routingKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.config.Secret)
	req.Header.Set("X-Message-Id", uuid.NewString())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("publish to %q: %w", routingKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("publish to %q: broker returned %d", routingKey, resp.StatusCode)
	}
	return nil
}

func (s *Service) channelStats(ctx context.Context, session string) error {
	reqURL := s.config.BaseURL + "/channels-stats?" + url.Values{"id": {session}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("channel stats for %q: %w", session, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("channel stats for %q: broker returned %d", session, resp.StatusCode)
	}
	return nil
}
