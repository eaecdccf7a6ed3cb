package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// discordContentLimit is Discord's cap on webhook message content.
const discordContentLimit = 2000

// DiscordSink posts signal messages to per-channel webhooks.
type DiscordSink struct {
	webhooks map[Channel]string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewDiscordSink builds a sink over the channel→webhook mapping. Channels
// without a webhook are silently skipped.
func NewDiscordSink(webhooks map[Channel]string) *DiscordSink {
	return &DiscordSink{
		webhooks: webhooks,
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

func (s *DiscordSink) Name() string { return "discord" }

// Send posts the message to the webhook mapped to the channel.
func (s *DiscordSink) Send(ctx context.Context, ch Channel, message string) error {
	url, ok := s.webhooks[ch]
	if !ok || url == "" {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("discord rate limiter: %w", err)
	}
	if len(message) > discordContentLimit {
		message = message[:discordContentLimit]
	}

	payload, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return fmt.Errorf("discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord send: status %d: %s", resp.StatusCode, body)
	}
	return nil
}
