// Package pipeline orchestrates one analysis tick: for each asset,
// integrate → analyze → offer → record, strictly in that order. Assets are
// processed sequentially; no cross-asset state exists outside the gate's
// dedup map.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/derivscope/derivscope/internal/analyzer"
	"github.com/derivscope/derivscope/internal/config"
	"github.com/derivscope/derivscope/internal/domain"
	"github.com/derivscope/derivscope/internal/gate"
	"github.com/derivscope/derivscope/internal/history"
	"github.com/derivscope/derivscope/internal/integrator"
	"github.com/derivscope/derivscope/internal/metrics"
)

// Runner wires the four pipeline stages over one asset universe.
type Runner struct {
	Assets     []domain.Asset
	Integrator *integrator.Integrator
	Analyzer   *config.AnalyzerConfig
	Gate       *gate.Gate
	History    history.Store
	Metrics    *metrics.Metrics
	Extras     any // opaque downstream artifacts recorded with each signal
	Log        zerolog.Logger
}

// TickReport summarizes one completed tick.
type TickReport struct {
	TickID     string        `json:"tick_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Assets     int           `json:"assets"`
	Emitted    int           `json:"emitted"`
	Suppressed int           `json:"suppressed"`
}

// RunTick processes the whole universe once. A gate or history failure
// aborts the tick; everything persisted so far stays valid because each
// record is keyed by its own created_at. A half-processed asset simply
// produces no signal and is retried next tick.
func (r *Runner) RunTick(ctx context.Context) (*TickReport, error) {
	started := time.Now()
	report := &TickReport{
		TickID:    uuid.NewString(),
		StartedAt: started.UTC(),
		Assets:    len(r.Assets),
	}
	log := r.Log.With().Str("tick_id", report.TickID).Logger()

	for _, asset := range r.Assets {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("tick interrupted: %w", err)
		}
		if err := r.runAsset(ctx, log, asset, report); err != nil {
			return report, err
		}
	}

	report.Duration = time.Since(started)
	if r.Metrics != nil {
		r.Metrics.TicksTotal.Inc()
		r.Metrics.TickDuration.Observe(report.Duration.Seconds())
	}
	log.Info().
		Int("assets", report.Assets).
		Int("emitted", report.Emitted).
		Int("suppressed", report.Suppressed).
		Dur("duration", report.Duration).
		Msg("tick complete")
	return report, nil
}

func (r *Runner) runAsset(ctx context.Context, log zerolog.Logger, asset domain.Asset, report *TickReport) error {
	snap := r.Integrator.Integrate(ctx, asset)
	if r.Metrics != nil {
		for _, kind := range snap.Quality.Missing {
			r.Metrics.SourcesAbsent.WithLabelValues(string(kind)).Inc()
		}
	}

	sig := analyzer.Analyze(snap, r.Analyzer)
	if sig == nil {
		report.Suppressed++
		if r.Metrics != nil {
			r.Metrics.SignalsSuppressed.WithLabelValues(string(asset), metrics.ReasonAnalyzer).Inc()
		}
		log.Debug().
			Str("asset", string(asset)).
			Str("quality", string(snap.Quality.Status)).
			Int("sources", snap.Quality.Available).
			Msg("no signal")
		return nil
	}

	accepted, err := r.Gate.Offer(ctx, sig)
	if err != nil {
		return fmt.Errorf("gate failed for %s: %w", asset, err)
	}
	if !accepted {
		report.Suppressed++
		if r.Metrics != nil {
			r.Metrics.SignalsSuppressed.WithLabelValues(string(asset), metrics.ReasonDedup).Inc()
		}
		return nil
	}

	id, err := r.History.Record(ctx, sig, snap, r.Extras)
	if err != nil {
		return fmt.Errorf("recording signal for %s: %w", asset, err)
	}

	report.Emitted++
	if r.Metrics != nil {
		r.Metrics.SignalsEmitted.WithLabelValues(string(asset), string(sig.Direction)).Inc()
		r.Metrics.RecordsWritten.Inc()
	}
	log.Info().
		Str("asset", string(asset)).
		Str("direction", string(sig.Direction)).
		Str("strength", string(sig.Strength)).
		Float64("confidence", sig.Confidence).
		Str("config_hash", sig.ConfigHash).
		Int64("record_id", id).
		Msg("signal emitted")
	return nil
}
