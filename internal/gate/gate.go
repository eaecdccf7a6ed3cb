// Package gate throttles repeated signal emissions and hands accepted
// signals to the notification sinks.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/derivscope/derivscope/internal/domain"
	"github.com/derivscope/derivscope/internal/sink"
)

// DefaultWindow is the canonical per-(asset,direction) cooldown.
const DefaultWindow = 4 * time.Hour

// DefaultSinkTimeout time-boxes each sink dispatch.
const DefaultSinkTimeout = 20 * time.Second

// Gate keeps the last-emitted time per dedup key, persisted as a small JSON
// file so the cooldown survives restarts. The file is guarded by an advisory
// file lock: overlapping ticks in separate processes serialize on it instead
// of clobbering each other's writes.
type Gate struct {
	path        string
	window      time.Duration
	sinkTimeout time.Duration
	sinks       []sink.Sink
	lock        *flock.Flock
	log         zerolog.Logger
}

// Option tweaks gate construction.
type Option func(*Gate)

// WithWindow overrides the dedup cooldown (default 4h).
func WithWindow(d time.Duration) Option {
	return func(g *Gate) { g.window = d }
}

// WithSinkTimeout overrides the per-sink dispatch time-box (default 20s).
func WithSinkTimeout(d time.Duration) Option {
	return func(g *Gate) { g.sinkTimeout = d }
}

// New builds a gate over the persisted dedup map at path. The file is
// created on first accept; a missing file means an empty map.
func New(path string, log zerolog.Logger, sinks []sink.Sink, opts ...Option) *Gate {
	g := &Gate{
		path:        path,
		window:      DefaultWindow,
		sinkTimeout: DefaultSinkTimeout,
		sinks:       sinks,
		lock:        flock.New(path + ".lock"),
		log:         log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Offer accepts the signal iff no prior accepted signal for the same
// (asset, direction) falls within the cooldown window. On accept it updates
// the persisted map first and then dispatches to the sinks; a failing sink
// is logged and never reverts the dedup update, so a flapping channel cannot
// make the pipeline re-spam. Map I/O failure is returned and fails the tick.
func (g *Gate) Offer(ctx context.Context, sig *domain.Signal) (bool, error) {
	if err := g.lock.Lock(); err != nil {
		return false, fmt.Errorf("locking dedup map: %w", err)
	}
	defer func() { _ = g.lock.Unlock() }()

	seen, err := g.load()
	if err != nil {
		return false, err
	}

	key := sig.DedupKey().Hash()
	if last, ok := seen[key]; ok && sig.CreatedAt.Sub(last) < g.window {
		g.log.Debug().
			Str("asset", string(sig.Asset)).
			Str("direction", string(sig.Direction)).
			Time("last_emitted", last).
			Msg("signal suppressed by dedup window")
		return false, nil
	}

	seen[key] = sig.CreatedAt
	if err := g.save(seen); err != nil {
		return false, err
	}

	g.dispatch(ctx, sig)
	return true, nil
}

// Entries returns the persisted dedup map for status reporting.
func (g *Gate) Entries() (map[string]time.Time, error) {
	if err := g.lock.RLock(); err != nil {
		return nil, fmt.Errorf("locking dedup map: %w", err)
	}
	defer func() { _ = g.lock.Unlock() }()
	return g.load()
}

func (g *Gate) load() (map[string]time.Time, error) {
	b, err := os.ReadFile(g.path)
	if os.IsNotExist(err) {
		return map[string]time.Time{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading dedup map %s: %w", g.path, err)
	}

	raw := map[string]string{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parsing dedup map %s: %w", g.path, err)
	}
	seen := make(map[string]time.Time, len(raw))
	for k, v := range raw {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("parsing dedup timestamp %q: %w", v, err)
		}
		seen[k] = ts
	}
	return seen, nil
}

func (g *Gate) save(seen map[string]time.Time) error {
	raw := make(map[string]string, len(seen))
	for k, v := range seen {
		raw[k] = v.UTC().Format(time.RFC3339)
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dedup map: %w", err)
	}

	if dir := filepath.Dir(g.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating dedup dir: %w", err)
		}
	}
	tmp := g.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("writing dedup map: %w", err)
	}
	if err := os.Rename(tmp, g.path); err != nil {
		return fmt.Errorf("replacing dedup map: %w", err)
	}
	return nil
}

// dispatch fans the signal out to every sink. STRONG signals go to the FREE
// channel as well; everything goes to VIP.
func (g *Gate) dispatch(ctx context.Context, sig *domain.Signal) {
	channels := []sink.Channel{sink.ChannelVIP}
	if sig.Strength == domain.StrengthStrong {
		channels = append(channels, sink.ChannelFree)
	}

	message := sink.FormatSignal(sig)
	for _, s := range g.sinks {
		for _, ch := range channels {
			sendCtx, cancel := context.WithTimeout(ctx, g.sinkTimeout)
			err := s.Send(sendCtx, ch, message)
			cancel()
			if err != nil {
				g.log.Error().
					Err(err).
					Str("sink", s.Name()).
					Str("channel", string(ch)).
					Str("asset", string(sig.Asset)).
					Msg("sink dispatch failed")
			}
		}
	}
}
