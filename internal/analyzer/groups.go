package analyzer

import (
	"fmt"
	"math"

	"github.com/derivscope/derivscope/internal/config"
	"github.com/derivscope/derivscope/internal/domain"
)

// group accumulates one rule set's outcome. Every group starts at the 0.5
// neutral line with no direction; rules move confidence additively and may
// tilt the direction. Confidence is clamped to [0,1] at the end.
type group struct {
	name       string
	direction  domain.Direction
	confidence float64
	reasons    []string
	indicators []domain.IndicatorKind
}

func newGroup(name string) *group {
	return &group{
		name:       name,
		direction:  domain.DirectionNeutral,
		confidence: 0.5,
	}
}

// apply adjusts confidence and tilts the direction if it is still neutral.
// A rule that only votes passes delta 0.
func (g *group) apply(delta float64, dir domain.Direction, reason string) {
	g.confidence += delta
	if dir != domain.DirectionNeutral && g.direction == domain.DirectionNeutral {
		g.direction = dir
	}
	if reason != "" {
		g.reasons = append(g.reasons, reason)
	}
}

func (g *group) consulted(kind domain.IndicatorKind) {
	g.indicators = append(g.indicators, kind)
}

func (g *group) result() domain.GroupResult {
	return domain.GroupResult{
		Name:       g.name,
		Direction:  g.direction,
		Confidence: clamp01(g.confidence),
		Reasons:    g.reasons,
		Indicators: g.indicators,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// finite guards rules against numerically degenerate inputs; a NaN or Inf
// value makes the rule skip silently.
func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// evalFuturesGroup scores the derivatives-flow picture: funding extremes and
// liquidation imbalance.
func evalFuturesGroup(snap *domain.Snapshot, cfg *config.AnalyzerConfig) domain.GroupResult {
	g := newGroup("futures")

	if f := snap.Futures; f != nil {
		g.consulted(domain.KindFutures)
		if finite(f.FundingRate) {
			switch {
			case f.FundingRate > cfg.FundingRateThreshold:
				g.apply(-0.15, domain.DirectionBearish,
					fmt.Sprintf("High funding %.4f%%", f.FundingRate*100))
			case f.FundingRate < -cfg.FundingRateThreshold:
				g.apply(+0.15, domain.DirectionBullish,
					fmt.Sprintf("Negative funding %.4f%%", f.FundingRate*100))
			}
		}
	}

	if l := snap.Liquidations; l != nil {
		g.consulted(domain.KindLiquidations)
		// A zero short side makes the ratio a sentinel, not a measurement.
		if finite(l.Ratio) && l.Short > 0 {
			switch {
			case l.Ratio > cfg.LiqRatioHigh:
				g.apply(-0.20, domain.DirectionBearish,
					fmt.Sprintf("Liq ratio %.2f (longs squeezed)", l.Ratio))
			case l.Ratio < cfg.LiqRatioLow:
				g.apply(+0.20, domain.DirectionBullish,
					fmt.Sprintf("Liq ratio %.2f (shorts squeezed)", l.Ratio))
			}
		}
	}

	return g.result()
}

// evalOptionsGroup scores the options-positioning picture: max-pain distance,
// dealer gamma, put/call ratio, and vanna exposure.
func evalOptionsGroup(snap *domain.Snapshot, cfg *config.AnalyzerConfig) domain.GroupResult {
	g := newGroup("options")

	if mp := snap.MaxPain; mp != nil {
		g.consulted(domain.KindMaxPain)
		// MaxPainThreshold is stored as a fraction; distance_pct is percent.
		if finite(mp.DistancePct) && math.Abs(mp.DistancePct) > cfg.MaxPainThreshold*100 {
			g.apply(+0.10, domain.DirectionNeutral,
				fmt.Sprintf("Spot %.1f%% from max pain %.0f", mp.DistancePct, mp.MaxPainStrike))
		}
	}

	if gx := snap.GEX; gx != nil {
		g.consulted(domain.KindGEX)
		if finite(gx.TotalGEX) && gx.TotalGEX < 0 {
			g.apply(+0.10, domain.DirectionBullish,
				fmt.Sprintf("Negative GEX %.2e (dealers amplify moves)", gx.TotalGEX))
		}
	}

	if p := snap.PCR; p != nil {
		g.consulted(domain.KindPCR)
		if finite(p.PCROI) {
			// Direction vote at the configured bands.
			switch {
			case p.PCROI < cfg.PCRBullishThreshold:
				g.apply(0, domain.DirectionBullish,
					fmt.Sprintf("PCR OI %.2f (call-heavy)", p.PCROI))
			case p.PCROI > cfg.PCRBearishThreshold:
				g.apply(0, domain.DirectionBearish,
					fmt.Sprintf("PCR OI %.2f (put-heavy)", p.PCROI))
			}
			// Confidence adjustment at the contrarian extremes.
			switch {
			case p.PCROI > cfg.PCROIExtremeHigh:
				g.apply(+0.08, domain.DirectionNeutral,
					fmt.Sprintf("PCR OI %.2f extreme (contrarian)", p.PCROI))
			case p.PCROI < cfg.PCROIExtremeLow:
				g.apply(-0.08, domain.DirectionNeutral, "")
			}
		}
	}

	if v := snap.Vanna; v != nil {
		g.consulted(domain.KindVanna)
		if finite(v.TotalVanna) && math.Abs(v.TotalVanna) > cfg.VannaCutoff() {
			if v.TotalVanna > 0 {
				g.apply(+0.12, domain.DirectionBullish,
					fmt.Sprintf("Vanna %.0f (spot-vol tailwind)", v.TotalVanna))
			} else {
				g.apply(-0.12, domain.DirectionBearish,
					fmt.Sprintf("Vanna %.0f (spot-vol headwind)", v.TotalVanna))
			}
		}
	}

	return g.result()
}

// evalTimingGroup scores the RSI-like derivatives; currently only the PCR
// RSI is consulted. High PCR RSI is crowd fear, read contrarian-bullish.
func evalTimingGroup(snap *domain.Snapshot, cfg *config.AnalyzerConfig) domain.GroupResult {
	g := newGroup("timing")

	if p := snap.PCR; p != nil {
		g.consulted(domain.KindPCR)
		if finite(p.PCRRSI) {
			switch {
			case p.PCRRSI > cfg.PCRRSIFear:
				g.apply(+0.10, domain.DirectionBullish,
					fmt.Sprintf("PCR RSI %.0f (fear)", p.PCRRSI))
			case p.PCRRSI < cfg.PCRRSIGreed:
				g.apply(-0.10, domain.DirectionBearish,
					fmt.Sprintf("PCR RSI %.0f (greed)", p.PCRRSI))
			}
		}
	}

	return g.result()
}
