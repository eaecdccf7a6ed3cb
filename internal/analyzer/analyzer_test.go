package analyzer

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derivscope/derivscope/internal/config"
	"github.com/derivscope/derivscope/internal/domain"
)

var collectedAt = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

// fullBullishSnapshot is the balanced-bullish seed vector with every source
// present.
func fullBullishSnapshot() *domain.Snapshot {
	snap := &domain.Snapshot{
		Asset:        domain.AssetBTC,
		CollectedAt:  collectedAt,
		Futures:      &domain.FuturesValue{Price: 65000, FundingRate: -0.00015, Volume24h: 1.5e9, OpenInterest: 6e8},
		Liquidations: &domain.LiquidationsValue{Long: 4e6, Short: 1e7, TotalCount: 1200, Ratio: 0.40},
		PCR:          &domain.PCRValue{PCROI: 0.65, PCRRSI: 75, Interpretation: "fear"},
		MaxPain:      &domain.MaxPainValue{MaxPainStrike: 62500, SpotPrice: 65000, DistancePct: 4.0, PutCallRatio: 0.9},
		GEX:          &domain.GEXValue{SpotPrice: 65000, TotalGEX: -1.2e9, ZeroGammaLevel: 66000},
		Vanna:        &domain.VannaValue{TotalVanna: 800, Interpretation: "supportive"},
		IVRank:       &domain.IVRankValue{CurrentIV: 0.55, IVRank: 40, IVPercentile: 45},
		OptionVWAP:   &domain.OptionVWAPValue{CallVWAP: 1200, PutVWAP: 900, TotalVWAP: 1050},
		OIDynamics: &domain.OIDynamicsValue{
			Summary: domain.OIDynamicsSummary{OverallSignal: "accumulation", Confidence: 0.6, ExpirationsAnalyzed: 4, ActiveSignals: 2},
		},
		ExpirationWalls: &domain.ExpirationWallsValue{
			MagneticLevels:   domain.MagneticLevels{CallWall: 70000, PutWall: 60000, CallWallOI: 3e4, PutWallOI: 2.5e4},
			PressureAnalysis: domain.PressureAnalysis{Direction: "up", Confidence: 0.55},
		},
	}
	snap.Seal(nil)
	return snap
}

func reasoningContains(t *testing.T, sig *domain.Signal, substr string) {
	t.Helper()
	for _, r := range sig.Reasoning {
		if strings.Contains(r, substr) {
			return
		}
	}
	t.Errorf("reasoning %v does not contain %q", sig.Reasoning, substr)
}

func TestBalancedBullishAllSources(t *testing.T) {
	cfg := config.DefaultAnalyzerConfig()
	sig := Analyze(fullBullishSnapshot(), cfg)
	require.NotNil(t, sig)

	assert.Equal(t, domain.DirectionBullish, sig.Direction)
	assert.Equal(t, domain.StrengthStrong, sig.Strength)
	assert.GreaterOrEqual(t, sig.Confidence, 0.75)
	assert.LessOrEqual(t, sig.Confidence, 1.0)

	reasoningContains(t, sig, "Negative funding")
	reasoningContains(t, sig, "Liq ratio 0.40 (shorts squeezed)")
	reasoningContains(t, sig, "PCR RSI 75 (fear)")

	assert.Equal(t, cfg.Hash(), sig.ConfigHash)
	assert.Equal(t, domain.AssetBTC, sig.Asset)
	assert.Equal(t, collectedAt, sig.CreatedAt)
	assert.LessOrEqual(t, len(sig.Reasoning), 8)
}

func TestGroupConfidences(t *testing.T) {
	cfg := config.DefaultAnalyzerConfig()
	snap := fullBullishSnapshot()

	futures := evalFuturesGroup(snap, cfg)
	assert.Equal(t, domain.DirectionBullish, futures.Direction)
	assert.InDelta(t, 0.85, futures.Confidence, 1e-9)

	options := evalOptionsGroup(snap, cfg)
	assert.Equal(t, domain.DirectionBullish, options.Direction)
	assert.InDelta(t, 0.74, options.Confidence, 1e-9)

	timing := evalTimingGroup(snap, cfg)
	assert.Equal(t, domain.DirectionBullish, timing.Direction)
	assert.InDelta(t, 0.60, timing.Confidence, 1e-9)
}

func TestConfirmationFilterBlocksEmission(t *testing.T) {
	cfg := config.DefaultAnalyzerConfig()
	cfg.RequireFuturesConfirm = true

	snap := fullBullishSnapshot()
	snap.Futures = &domain.FuturesValue{Price: 65000, FundingRate: 0}
	snap.Liquidations = &domain.LiquidationsValue{Long: 5e6, Short: 5e6, TotalCount: 900, Ratio: 1.0}
	snap.Seal(nil)

	// The futures group never moves off the neutral line, so it cannot
	// confirm.
	futures := evalFuturesGroup(snap, cfg)
	assert.Equal(t, 0.5, futures.Confidence)

	assert.Nil(t, Analyze(snap, cfg))
}

func TestMajorityVoteAbsent(t *testing.T) {
	cfg := config.DefaultAnalyzerConfig()

	cfg.MinDataQuality = domain.QualityPoor

	// Futures bullish, options bearish, timing neutral: no two groups agree
	// on a non-neutral label.
	snap := &domain.Snapshot{
		Asset:       domain.AssetETH,
		CollectedAt: collectedAt,
		Futures:     &domain.FuturesValue{Price: 3000, FundingRate: -0.00015},
		PCR:         &domain.PCRValue{PCROI: 1.6, PCRRSI: 50},
		MaxPain:     &domain.MaxPainValue{MaxPainStrike: 2800, SpotPrice: 3000, DistancePct: 4.0},
	}
	snap.Seal(nil)

	futures := evalFuturesGroup(snap, cfg)
	options := evalOptionsGroup(snap, cfg)
	timing := evalTimingGroup(snap, cfg)
	require.Equal(t, domain.DirectionBullish, futures.Direction)
	require.Equal(t, domain.DirectionBearish, options.Direction)
	require.Equal(t, domain.DirectionNeutral, timing.Direction)

	assert.Nil(t, Analyze(snap, cfg))
}

func TestAdmissionDataStarvation(t *testing.T) {
	snap := &domain.Snapshot{
		Asset:        domain.AssetBTC,
		CollectedAt:  collectedAt,
		Futures:      &domain.FuturesValue{Price: 65000, FundingRate: -0.00015},
		Liquidations: &domain.LiquidationsValue{Long: 4e6, Short: 1e7, Ratio: 0.40},
	}
	snap.Seal(nil)

	cfg := config.DefaultAnalyzerConfig()
	cfg.MinDataSources = 3
	cfg.MinDataQuality = domain.QualityPoor
	assert.Nil(t, Analyze(snap, cfg))
}

func TestAdmissionMinSourcesBoundary(t *testing.T) {
	// Two sources that move two groups: futures via funding, timing via PCR
	// RSI; PCR keeps options neutral.
	snap := &domain.Snapshot{
		Asset:       domain.AssetBTC,
		CollectedAt: collectedAt,
		Futures:     &domain.FuturesValue{Price: 65000, FundingRate: -0.00015},
		PCR:         &domain.PCRValue{PCROI: 1.0, PCRRSI: 75},
	}
	snap.Seal(nil)
	require.Equal(t, 2, snap.Quality.Available)

	cfg := config.DefaultAnalyzerConfig()
	cfg.MinDataQuality = domain.QualityPoor
	cfg.MinConfidence = 0.5
	cfg.MinDataSources = 2
	require.NotNil(t, Analyze(snap, cfg), "exactly met admits")

	cfg.MinDataSources = 3
	assert.Nil(t, Analyze(snap, cfg), "one below rejects")
}

func TestAdmissionQualityFloor(t *testing.T) {
	snap := &domain.Snapshot{
		Asset:       domain.AssetBTC,
		CollectedAt: collectedAt,
		Futures:     &domain.FuturesValue{Price: 65000, FundingRate: -0.00015},
		PCR:         &domain.PCRValue{PCROI: 1.0, PCRRSI: 75},
	}
	snap.Seal(nil)
	require.Equal(t, domain.QualityPoor, snap.Quality.Status)

	cfg := config.DefaultAnalyzerConfig()
	cfg.MinConfidence = 0.5
	cfg.MinDataQuality = domain.QualityAcceptable
	assert.Nil(t, Analyze(snap, cfg))

	cfg.MinDataQuality = domain.QualityPoor
	assert.NotNil(t, Analyze(snap, cfg))
}

// boundarySnapshot drives futures to 0.5+0.15 and timing to 0.5+0.10 with
// options flat, so the weighted total is reproducible in the test.
func boundarySnapshot() *domain.Snapshot {
	snap := &domain.Snapshot{
		Asset:       domain.AssetSOL,
		CollectedAt: collectedAt,
		Futures:     &domain.FuturesValue{Price: 150, FundingRate: -0.00015},
		PCR:         &domain.PCRValue{PCROI: 1.0, PCRRSI: 75},
	}
	snap.Seal(nil)
	return snap
}

func boundaryConfig() *config.AnalyzerConfig {
	cfg := config.DefaultAnalyzerConfig()
	cfg.FuturesWeight = 1
	cfg.OptionsWeight = 0
	cfg.TimingWeight = 1
	if err := cfg.Normalize(); err != nil {
		panic(err)
	}
	cfg.MinDataQuality = domain.QualityPoor
	return cfg
}

// boundaryTotal mirrors the combination arithmetic exactly.
func boundaryTotal(cfg *config.AnalyzerConfig) float64 {
	futures := 0.5 + 0.15
	timing := 0.5 + 0.10
	return futures*cfg.FuturesWeight + 0.5*cfg.OptionsWeight + timing*cfg.TimingWeight
}

func TestMinConfidenceBoundary(t *testing.T) {
	cfg := boundaryConfig()
	total := boundaryTotal(cfg)

	cfg.MinConfidence = total
	sig := Analyze(boundarySnapshot(), cfg)
	require.NotNil(t, sig, "exactly met emits")
	assert.Equal(t, domain.StrengthModerate, sig.Strength)
	assert.Equal(t, total, sig.Confidence)

	cfg.MinConfidence = total + 1e-9
	assert.Nil(t, Analyze(boundarySnapshot(), cfg), "strictly below suppresses")
}

func TestStrongThresholdBoundary(t *testing.T) {
	cfg := boundaryConfig()
	total := boundaryTotal(cfg)
	cfg.MinConfidence = 0.5

	cfg.StrongThreshold = total
	sig := Analyze(boundarySnapshot(), cfg)
	require.NotNil(t, sig)
	assert.Equal(t, domain.StrengthStrong, sig.Strength, "exactly met classifies STRONG")

	cfg.StrongThreshold = total + 1e-9
	sig = Analyze(boundarySnapshot(), cfg)
	require.NotNil(t, sig)
	assert.Equal(t, domain.StrengthModerate, sig.Strength)
}

func TestEmittedSignalInvariants(t *testing.T) {
	cfg := config.DefaultAnalyzerConfig()
	sig := Analyze(fullBullishSnapshot(), cfg)
	require.NotNil(t, sig)

	assert.GreaterOrEqual(t, sig.Confidence, cfg.MinConfidence)
	assert.LessOrEqual(t, sig.Confidence, 1.0)

	// Majority-vote property: at least two groups share the direction.
	agree := 0
	for _, g := range sig.Groups() {
		if g.Direction == sig.Direction {
			agree++
		}
	}
	assert.GreaterOrEqual(t, agree, 2)
}

func TestAnalyzeIsPure(t *testing.T) {
	cfg := config.DefaultAnalyzerConfig()
	snap := fullBullishSnapshot()

	first := Analyze(snap, cfg)
	second := Analyze(snap, cfg)
	require.NotNil(t, first)
	assert.Equal(t, first, second)
}

func TestSnapshotRoundTripDrivesIdenticalSignal(t *testing.T) {
	cfg := config.DefaultAnalyzerConfig()
	snap := fullBullishSnapshot()

	b, err := json.Marshal(snap)
	require.NoError(t, err)
	var reloaded domain.Snapshot
	require.NoError(t, json.Unmarshal(b, &reloaded))

	assert.Equal(t, Analyze(snap, cfg), Analyze(&reloaded, cfg))
}

func TestDegenerateLiquidationRatioSkips(t *testing.T) {
	cfg := config.DefaultAnalyzerConfig()
	snap := &domain.Snapshot{
		Asset:       domain.AssetXRP,
		CollectedAt: collectedAt,
		Futures:     &domain.FuturesValue{Price: 2.5, FundingRate: 0},
		// Sentinel ratio from a zero short side must not count as a squeeze.
		Liquidations: &domain.LiquidationsValue{Long: 1e6, Short: 0, TotalCount: 40, Ratio: 999},
	}
	snap.Seal(nil)

	futures := evalFuturesGroup(snap, cfg)
	assert.Equal(t, 0.5, futures.Confidence)
	assert.Equal(t, domain.DirectionNeutral, futures.Direction)
	assert.Empty(t, futures.Reasons)
}

func TestBearishGroupRules(t *testing.T) {
	cfg := config.DefaultAnalyzerConfig()
	snap := &domain.Snapshot{
		Asset:        domain.AssetDOGE,
		CollectedAt:  collectedAt,
		Futures:      &domain.FuturesValue{Price: 0.2, FundingRate: 0.0002},
		Liquidations: &domain.LiquidationsValue{Long: 2e7, Short: 5e6, TotalCount: 2000, Ratio: 4.0},
		PCR:          &domain.PCRValue{PCROI: 1.3, PCRRSI: 20},
		Vanna:        &domain.VannaValue{TotalVanna: -900},
	}
	snap.Seal(nil)

	futures := evalFuturesGroup(snap, cfg)
	assert.Equal(t, domain.DirectionBearish, futures.Direction)
	assert.InDelta(t, 0.15, futures.Confidence, 1e-9)
	assert.Contains(t, futures.Reasons, "High funding 0.0200%")
	assert.Contains(t, futures.Reasons, "Liq ratio 4.00 (longs squeezed)")

	options := evalOptionsGroup(snap, cfg)
	assert.Equal(t, domain.DirectionBearish, options.Direction)
	assert.InDelta(t, 0.38, options.Confidence, 1e-9)
	assert.Contains(t, options.Reasons, "PCR OI 1.30 (put-heavy)")
	assert.Contains(t, options.Reasons, "Vanna -900 (spot-vol headwind)")

	timing := evalTimingGroup(snap, cfg)
	assert.Equal(t, domain.DirectionBearish, timing.Direction)
	assert.InDelta(t, 0.40, timing.Confidence, 1e-9)
	assert.Contains(t, timing.Reasons, "PCR RSI 20 (greed)")
}

func TestBearishEmission(t *testing.T) {
	cfg := config.DefaultAnalyzerConfig()
	cfg.MinConfidence = 0.5
	cfg.MinDataQuality = domain.QualityPoor

	// Options and timing both vote bearish with the options rules adding
	// confidence: extreme PCR OI plus max-pain distance.
	snap := &domain.Snapshot{
		Asset:       domain.AssetDOGE,
		CollectedAt: collectedAt,
		PCR:         &domain.PCRValue{PCROI: 1.6, PCRRSI: 20},
		MaxPain:     &domain.MaxPainValue{MaxPainStrike: 0.21, SpotPrice: 0.2, DistancePct: -4.8},
	}
	snap.Seal(nil)

	sig := Analyze(snap, cfg)
	require.NotNil(t, sig)
	assert.Equal(t, domain.DirectionBearish, sig.Direction)
	assert.Equal(t, domain.StrengthModerate, sig.Strength)
	reasoningContains(t, sig, "PCR OI 1.60 (put-heavy)")
	reasoningContains(t, sig, "PCR RSI 20 (greed)")
}

func TestReasoningCappedAtEight(t *testing.T) {
	groups := []domain.GroupResult{
		{Reasons: []string{"a", "b", "c", "d"}},
		{Reasons: []string{"e", "f", "g", "h"}},
		{Reasons: []string{"i", "j"}},
	}
	merged := mergeReasons(groups...)
	assert.Len(t, merged, 8)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h"}, merged)
}

func TestMissingInputsSkipRules(t *testing.T) {
	cfg := config.DefaultAnalyzerConfig()
	snap := &domain.Snapshot{Asset: domain.AssetMNT, CollectedAt: collectedAt}
	snap.Seal(nil)

	for _, g := range []domain.GroupResult{
		evalFuturesGroup(snap, cfg),
		evalOptionsGroup(snap, cfg),
		evalTimingGroup(snap, cfg),
	} {
		assert.Equal(t, 0.5, g.Confidence)
		assert.Equal(t, domain.DirectionNeutral, g.Direction)
		assert.Empty(t, g.Reasons)
		assert.Empty(t, g.Indicators)
	}
}
