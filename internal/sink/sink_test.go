package sink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derivscope/derivscope/internal/domain"
)

func formatSignalFixture() *domain.Signal {
	spot := 65000.0
	return &domain.Signal{
		Asset:      domain.AssetBTC,
		Direction:  domain.DirectionBullish,
		Confidence: 0.7505,
		Strength:   domain.StrengthStrong,
		Reasoning:  []string{"Negative funding -0.0150%", "PCR RSI 75 (fear)"},
		ConfigHash: "a1b2c3d4",
		Quality: domain.QualityReport{
			Status:     domain.QualityExcellent,
			Available:  10,
			Registered: 10,
		},
		SpotPrice: &spot,
		CreatedAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}
}

func TestFormatSignal(t *testing.T) {
	msg := FormatSignal(formatSignalFixture())

	assert.Contains(t, msg, "*BTC BULLISH* (STRONG)")
	assert.Contains(t, msg, "Confidence: 75%")
	assert.Contains(t, msg, "Spot: 65000.00")
	assert.Contains(t, msg, "Data: 10/10 sources (EXCELLENT)")
	assert.Contains(t, msg, "• Negative funding -0.0150%")
	assert.Contains(t, msg, "cfg a1b2c3d4")
}

func TestFormatSignalOmitsMissingSpot(t *testing.T) {
	sig := formatSignalFixture()
	sig.SpotPrice = nil
	assert.NotContains(t, FormatSignal(sig), "Spot:")
}

type telegramCall struct {
	path string
	body map[string]any
}

func newTelegramServer(t *testing.T, status int, response string, calls *[]telegramCall) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		*calls = append(*calls, telegramCall{path: r.URL.Path, body: body})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
}

func TestTelegramSend(t *testing.T) {
	var calls []telegramCall
	srv := newTelegramServer(t, http.StatusOK, `{"ok": true}`, &calls)
	defer srv.Close()

	s := NewTelegramSink("test-token", map[Channel]string{ChannelVIP: "-100123"})
	s.baseURL = srv.URL

	err := s.Send(context.Background(), ChannelVIP, "hello")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "/bottest-token/sendMessage", calls[0].path)
	assert.Equal(t, "-100123", calls[0].body["chat_id"])
	assert.Equal(t, "hello", calls[0].body["text"])
	assert.Equal(t, "Markdown", calls[0].body["parse_mode"])
}

func TestTelegramSkipsUnmappedChannel(t *testing.T) {
	var calls []telegramCall
	srv := newTelegramServer(t, http.StatusOK, `{"ok": true}`, &calls)
	defer srv.Close()

	s := NewTelegramSink("test-token", map[Channel]string{ChannelVIP: "-100123"})
	s.baseURL = srv.URL

	require.NoError(t, s.Send(context.Background(), ChannelFree, "hello"))
	assert.Empty(t, calls, "unmapped channel must not hit the API")
}

func TestTelegramTruncatesLongMessages(t *testing.T) {
	var calls []telegramCall
	srv := newTelegramServer(t, http.StatusOK, `{"ok": true}`, &calls)
	defer srv.Close()

	s := NewTelegramSink("test-token", map[Channel]string{ChannelVIP: "-100123"})
	s.baseURL = srv.URL

	long := strings.Repeat("x", telegramMessageLimit+100)
	require.NoError(t, s.Send(context.Background(), ChannelVIP, long))
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].body["text"], telegramMessageLimit)
}

func TestTelegramHTTPError(t *testing.T) {
	var calls []telegramCall
	srv := newTelegramServer(t, http.StatusBadGateway, "gateway error", &calls)
	defer srv.Close()

	s := NewTelegramSink("test-token", map[Channel]string{ChannelVIP: "-100123"})
	s.baseURL = srv.URL

	err := s.Send(context.Background(), ChannelVIP, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestTelegramAPIRejection(t *testing.T) {
	var calls []telegramCall
	srv := newTelegramServer(t, http.StatusOK, `{"ok": false, "description": "chat not found"}`, &calls)
	defer srv.Close()

	s := NewTelegramSink("test-token", map[Channel]string{ChannelVIP: "-100123"})
	s.baseURL = srv.URL

	err := s.Send(context.Background(), ChannelVIP, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestDiscordSend(t *testing.T) {
	var bodies []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSink(map[Channel]string{ChannelVIP: srv.URL})
	require.NoError(t, s.Send(context.Background(), ChannelVIP, "hello"))
	require.Len(t, bodies, 1)
	assert.Equal(t, "hello", bodies[0]["content"])

	// Unmapped channels are skipped without a call.
	require.NoError(t, s.Send(context.Background(), ChannelFree, "hello"))
	assert.Len(t, bodies, 1)
}

func TestDiscordTruncatesLongMessages(t *testing.T) {
	var bodies []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSink(map[Channel]string{ChannelVIP: srv.URL})
	long := strings.Repeat("x", discordContentLimit+1)
	require.NoError(t, s.Send(context.Background(), ChannelVIP, long))
	require.Len(t, bodies, 1)
	assert.Len(t, bodies[0]["content"], discordContentLimit)
}

func TestDiscordHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewDiscordSink(map[Channel]string{ChannelVIP: srv.URL})
	err := s.Send(context.Background(), ChannelVIP, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestLogSinkNeverFails(t *testing.T) {
	s := NewLogSink(zerolog.Nop())
	assert.Equal(t, "log", s.Name())
	assert.NoError(t, s.Send(context.Background(), ChannelVIP, "hello"))
}
