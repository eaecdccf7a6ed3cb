// Package sink carries accepted signals out to notification channels. The
// pipeline is format-agnostic; each sink may truncate or re-encode.
package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/derivscope/derivscope/internal/domain"
)

// Channel selects the audience tier for a message.
type Channel string

const (
	ChannelVIP   Channel = "VIP"
	ChannelFree  Channel = "FREE"
	ChannelAdmin Channel = "ADMIN"
)

// Sink delivers a plain-text message to one channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, ch Channel, message string) error
}

// FormatSignal renders the standard notification text for a signal.
func FormatSignal(sig *domain.Signal) string {
	var b strings.Builder
	arrow := "📈"
	if sig.Direction == domain.DirectionBearish {
		arrow = "📉"
	}
	fmt.Fprintf(&b, "%s *%s %s* (%s)\n", arrow, sig.Asset, sig.Direction, sig.Strength)
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", sig.Confidence*100)
	if sig.SpotPrice != nil {
		fmt.Fprintf(&b, "Spot: %.2f\n", *sig.SpotPrice)
	}
	fmt.Fprintf(&b, "Data: %d/%d sources (%s)\n",
		sig.Quality.Available, sig.Quality.Registered, sig.Quality.Status)
	for _, r := range sig.Reasoning {
		fmt.Fprintf(&b, "• %s\n", r)
	}
	fmt.Fprintf(&b, "cfg %s | %s", sig.ConfigHash, sig.CreatedAt.Format("2006-01-02 15:04 MST"))
	return b.String()
}

// LogSink writes messages to the logger instead of a network channel.
// Used for dry runs and as the fallback when no sink is configured.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink builds a logging sink.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, ch Channel, message string) error {
	s.log.Info().Str("channel", string(ch)).Msg(message)
	return nil
}
