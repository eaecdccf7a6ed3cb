// Package analyzer scores an integrated snapshot against a parameterized
// rule set and emits a directional signal, or nothing.
//
// Analyze is a pure function of (snapshot, config): the emitted signal's
// CreatedAt is the snapshot's collection time, so replaying a historical
// snapshot under the same parameters reproduces the signal byte for byte.
package analyzer

import (
	"github.com/derivscope/derivscope/internal/config"
	"github.com/derivscope/derivscope/internal/domain"
)

const maxReasons = 8

// Analyze runs admission, the three group evaluations, confirmation filters,
// weighted combination, the majority vote, and strength classification.
// It returns nil when no signal fires.
func Analyze(snap *domain.Snapshot, cfg *config.AnalyzerConfig) *domain.Signal {
	// Admission: refuse to score a starved snapshot.
	if snap.Quality.Available < cfg.MinDataSources {
		return nil
	}
	if snap.Quality.Status.Rank() < cfg.MinDataQuality.Rank() {
		return nil
	}

	futures := evalFuturesGroup(snap, cfg)
	options := evalOptionsGroup(snap, cfg)
	timing := evalTimingGroup(snap, cfg)

	// Confirmation filters: a required group must be strictly above the
	// neutral line, so a group that never moved cannot confirm.
	if cfg.RequireFuturesConfirm && futures.Confidence <= 0.5 {
		return nil
	}
	if cfg.RequireOptionsConfirm && options.Confidence <= 0.5 {
		return nil
	}

	total := futures.Confidence*cfg.FuturesWeight +
		options.Confidence*cfg.OptionsWeight +
		timing.Confidence*cfg.TimingWeight

	direction, ok := majorityVote(futures, options, timing)
	if !ok {
		return nil
	}

	var strength domain.Strength
	switch {
	case total >= cfg.StrongThreshold:
		strength = domain.StrengthStrong
	case total >= cfg.MinConfidence:
		strength = domain.StrengthModerate
	default:
		return nil
	}

	return &domain.Signal{
		Asset:      snap.Asset,
		Direction:  direction,
		Confidence: total,
		Strength:   strength,
		Futures:    futures,
		Options:    options,
		Timing:     timing,
		Reasoning:  mergeReasons(futures, options, timing),
		ConfigHash: cfg.Hash(),
		Quality:    snap.Quality,
		SpotPrice:  snap.SpotPrice,
		CreatedAt:  snap.CollectedAt,
	}
}

// majorityVote requires a strict majority: at least two of the three groups
// sharing one non-neutral label.
func majorityVote(groups ...domain.GroupResult) (domain.Direction, bool) {
	counts := map[domain.Direction]int{}
	for _, g := range groups {
		counts[g.Direction]++
	}
	for _, dir := range []domain.Direction{domain.DirectionBullish, domain.DirectionBearish} {
		if counts[dir] >= 2 {
			return dir, true
		}
	}
	return domain.DirectionNeutral, false
}

// mergeReasons concatenates group reasons in evaluation order, truncated to
// the reporting cap.
func mergeReasons(groups ...domain.GroupResult) []string {
	merged := make([]string, 0, maxReasons)
	for _, g := range groups {
		for _, r := range g.Reasons {
			if len(merged) == maxReasons {
				return merged
			}
			merged = append(merged, r)
		}
	}
	return merged
}
