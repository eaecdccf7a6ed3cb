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

const telegramAPIBase = "https://api.telegram.org"

// telegramMessageLimit is Telegram's hard cap on message length.
const telegramMessageLimit = 4096

// TelegramSink posts signal messages through the Bot API. Sends are rate
// limited below Telegram's per-bot ceiling.
type TelegramSink struct {
	baseURL string
	token   string
	chatIDs map[Channel]string
	client  *http.Client
	limiter *rate.Limiter
}

// NewTelegramSink builds a sink for the given bot token and channel→chat_id
// mapping. Channels without a chat id are silently skipped.
func NewTelegramSink(token string, chatIDs map[Channel]string) *TelegramSink {
	return &TelegramSink{
		baseURL: telegramAPIBase,
		token:   token,
		chatIDs: chatIDs,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 20),
	}
}

func (s *TelegramSink) Name() string { return "telegram" }

// Send posts the message to the chat mapped to the channel.
func (s *TelegramSink) Send(ctx context.Context, ch Channel, message string) error {
	chatID, ok := s.chatIDs[ch]
	if !ok || chatID == "" {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limiter: %w", err)
	}
	if len(message) > telegramMessageLimit {
		message = message[:telegramMessageLimit]
	}

	payload, err := json.Marshal(map[string]any{
		"chat_id":                  chatID,
		"text":                     message,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram send: status %d: %s", resp.StatusCode, body)
	}

	var apiResp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("telegram response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram send rejected: %s", apiResp.Description)
	}
	return nil
}
