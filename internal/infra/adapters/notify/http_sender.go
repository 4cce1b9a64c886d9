// File: internal/infra/adapters/notify/http_sender.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"recruitment-billing/internal/config"
	"recruitment-billing/internal/domain/ports/adapter"
)

var _ adapter.NotificationSender = (*HTTPSender)(nil)

// HTTPSender posts billing notifications to the platform notification
// service, which owns channel selection (mail, push, in-app) per user.
type HTTPSender struct {
	endpoint  string
	authToken string
	httpCli   *http.Client
	log       *zerolog.Logger
}

func NewHTTPSender(cfg config.NotifyConfig, logger *zerolog.Logger) *HTTPSender {
	l := logger.With().Str("component", "HTTPSender").Logger()
	return &HTTPSender{
		endpoint:  cfg.Endpoint,
		authToken: cfg.AuthToken,
		httpCli:   &http.Client{Timeout: cfg.Timeout},
		log:       &l,
	}
}

type notifyRequest struct {
	UserID    string          `json:"user_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

func (s *HTTPSender) Send(ctx context.Context, userID, eventType string, payload []byte) error {
	body, err := json.Marshal(notifyRequest{
		UserID:    userID,
		EventType: eventType,
		Payload:   payload,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.httpCli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification service: HTTP %d", resp.StatusCode)
	}
	s.log.Debug().Str("user_id", userID).Str("event_type", eventType).Msg("notification delivered")
	return nil
}

// LogSender writes notifications to the log instead of delivering them. Used
// in dev and whenever no notification endpoint is configured.
type LogSender struct {
	log *zerolog.Logger
}

var _ adapter.NotificationSender = (*LogSender)(nil)

func NewLogSender(logger *zerolog.Logger) *LogSender {
	l := logger.With().Str("component", "LogSender").Logger()
	return &LogSender{log: &l}
}

func (s *LogSender) Send(_ context.Context, userID, eventType string, payload []byte) error {
	s.log.Info().
		Str("user_id", userID).
		Str("event_type", eventType).
		RawJSON("payload", payload).
		Msg("notification")
	return nil
}

// NewSender picks the delivery mechanism from config.
func NewSender(cfg config.NotifyConfig, logger *zerolog.Logger) adapter.NotificationSender {
	if cfg.Endpoint == "" {
		return NewLogSender(logger)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return NewHTTPSender(cfg, logger)
}
