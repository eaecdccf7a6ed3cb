package gate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derivscope/derivscope/internal/domain"
	"github.com/derivscope/derivscope/internal/sink"
)

var t0 = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

type recordedSend struct {
	channel sink.Channel
	message string
}

// recordingSink captures dispatches; a non-nil err makes every send fail.
type recordingSink struct {
	sends []recordedSend
	err   error
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Send(_ context.Context, ch sink.Channel, message string) error {
	r.sends = append(r.sends, recordedSend{channel: ch, message: message})
	return r.err
}

func testSignal(asset domain.Asset, dir domain.Direction, strength domain.Strength, at time.Time) *domain.Signal {
	return &domain.Signal{
		Asset:      asset,
		Direction:  dir,
		Confidence: 0.72,
		Strength:   strength,
		Reasoning:  []string{"Negative funding -0.0150%"},
		ConfigHash: "deadbeef",
		CreatedAt:  at,
	}
}

func newTestGate(t *testing.T, sinks []sink.Sink) *Gate {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sent_signals_history.json")
	return New(path, zerolog.Nop(), sinks)
}

func TestOfferAcceptsFirstSignal(t *testing.T) {
	rec := &recordingSink{}
	g := newTestGate(t, []sink.Sink{rec})

	ok, err := g.Offer(context.Background(), testSignal(domain.AssetBTC, domain.DirectionBullish, domain.StrengthModerate, t0))
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := g.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	key := domain.DedupKey{Asset: domain.AssetBTC, Direction: domain.DirectionBullish}.Hash()
	assert.Equal(t, t0, entries[key].UTC())
}

func TestOfferSuppressesWithinWindow(t *testing.T) {
	g := newTestGate(t, nil)
	ctx := context.Background()

	ok, err := g.Offer(ctx, testSignal(domain.AssetBTC, domain.DirectionBullish, domain.StrengthModerate, t0))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.Offer(ctx, testSignal(domain.AssetBTC, domain.DirectionBullish, domain.StrengthModerate, t0.Add(3*time.Hour)))
	require.NoError(t, err)
	assert.False(t, ok, "same key inside the window must be suppressed")

	ok, err = g.Offer(ctx, testSignal(domain.AssetBTC, domain.DirectionBullish, domain.StrengthModerate, t0.Add(4*time.Hour+time.Second)))
	require.NoError(t, err)
	assert.True(t, ok, "same key after the window must pass")
}

func TestOfferWindowBoundary(t *testing.T) {
	g := newTestGate(t, nil)
	ctx := context.Background()

	ok, err := g.Offer(ctx, testSignal(domain.AssetETH, domain.DirectionBearish, domain.StrengthModerate, t0))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.Offer(ctx, testSignal(domain.AssetETH, domain.DirectionBearish, domain.StrengthModerate, t0.Add(DefaultWindow-time.Second)))
	require.NoError(t, err)
	assert.False(t, ok, "one second inside the window suppresses")

	ok, err = g.Offer(ctx, testSignal(domain.AssetETH, domain.DirectionBearish, domain.StrengthModerate, t0.Add(DefaultWindow+time.Second)))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOfferDistinguishesKeys(t *testing.T) {
	g := newTestGate(t, nil)
	ctx := context.Background()

	ok, err := g.Offer(ctx, testSignal(domain.AssetBTC, domain.DirectionBullish, domain.StrengthModerate, t0))
	require.NoError(t, err)
	require.True(t, ok)

	// Opposite direction and another asset are independent keys.
	ok, err = g.Offer(ctx, testSignal(domain.AssetBTC, domain.DirectionBearish, domain.StrengthModerate, t0.Add(time.Minute)))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Offer(ctx, testSignal(domain.AssetSOL, domain.DirectionBullish, domain.StrengthModerate, t0.Add(time.Minute)))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCooldownSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent_signals_history.json")
	ctx := context.Background()

	first := New(path, zerolog.Nop(), nil)
	ok, err := first.Offer(ctx, testSignal(domain.AssetBTC, domain.DirectionBullish, domain.StrengthModerate, t0))
	require.NoError(t, err)
	require.True(t, ok)

	// A fresh gate over the same file sees the prior emission.
	second := New(path, zerolog.Nop(), nil)
	ok, err = second.Offer(ctx, testSignal(domain.AssetBTC, domain.DirectionBullish, domain.StrengthModerate, t0.Add(time.Hour)))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDispatchChannels(t *testing.T) {
	rec := &recordingSink{}
	g := newTestGate(t, []sink.Sink{rec})
	ctx := context.Background()

	ok, err := g.Offer(ctx, testSignal(domain.AssetBTC, domain.DirectionBullish, domain.StrengthModerate, t0))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rec.sends, 1, "MODERATE goes to VIP only")
	assert.Equal(t, sink.ChannelVIP, rec.sends[0].channel)

	rec.sends = nil
	ok, err = g.Offer(ctx, testSignal(domain.AssetETH, domain.DirectionBullish, domain.StrengthStrong, t0))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rec.sends, 2, "STRONG goes to VIP and FREE")
	assert.Equal(t, sink.ChannelVIP, rec.sends[0].channel)
	assert.Equal(t, sink.ChannelFree, rec.sends[1].channel)
}

func TestSinkFailureDoesNotRevertDedup(t *testing.T) {
	rec := &recordingSink{err: errors.New("telegram 502")}
	g := newTestGate(t, []sink.Sink{rec})
	ctx := context.Background()

	ok, err := g.Offer(ctx, testSignal(domain.AssetBTC, domain.DirectionBullish, domain.StrengthModerate, t0))
	require.NoError(t, err, "a failing sink must not fail the offer")
	assert.True(t, ok)

	// The cooldown still stands even though delivery failed.
	ok, err = g.Offer(ctx, testSignal(domain.AssetBTC, domain.DirectionBullish, domain.StrengthModerate, t0.Add(time.Minute)))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntriesOnMissingFile(t *testing.T) {
	g := newTestGate(t, nil)
	entries, err := g.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCorruptMapFailsTheTick(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent_signals_history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	g := New(path, zerolog.Nop(), nil)
	_, err := g.Offer(context.Background(), testSignal(domain.AssetBTC, domain.DirectionBullish, domain.StrengthModerate, t0))
	require.Error(t, err)
}
