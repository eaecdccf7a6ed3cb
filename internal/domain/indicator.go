package domain

import "encoding/json"

// IndicatorKind enumerates the indicator sources the integrator knows how to
// collect. The set is closed: adding a source requires a code change, which
// keeps shape drift visible at compile time instead of at 3am.
type IndicatorKind string

const (
	KindFutures         IndicatorKind = "futures"
	KindLiquidations    IndicatorKind = "liquidations"
	KindPCR             IndicatorKind = "pcr"
	KindMaxPain         IndicatorKind = "max_pain"
	KindGEX             IndicatorKind = "gex"
	KindVanna           IndicatorKind = "vanna"
	KindIVRank          IndicatorKind = "iv_rank"
	KindOptionVWAP      IndicatorKind = "option_vwap"
	KindOIDynamics      IndicatorKind = "oi_dynamics"
	KindExpirationWalls IndicatorKind = "expiration_walls"
)

// AllIndicatorKinds returns every registered source in canonical order.
func AllIndicatorKinds() []IndicatorKind {
	return []IndicatorKind{
		KindFutures, KindLiquidations, KindPCR, KindMaxPain, KindGEX,
		KindVanna, KindIVRank, KindOptionVWAP, KindOIDynamics, KindExpirationWalls,
	}
}

// FuturesValue is the latest perpetual-futures state for one asset.
type FuturesValue struct {
	Price        float64 `json:"price"`
	FundingRate  float64 `json:"funding_rate"`
	Volume24h    float64 `json:"volume_24h"`
	OpenInterest float64 `json:"open_interest"`
}

// LiquidationsValue summarizes recent forced liquidations.
// Ratio is long/short; collectors write 999 when the short side is zero.
type LiquidationsValue struct {
	Long       float64 `json:"long"`
	Short      float64 `json:"short"`
	TotalCount int     `json:"total_count"`
	Ratio      float64 `json:"ratio"`
}

// PCRValue carries the put/call ratio family.
type PCRValue struct {
	PCROI          float64 `json:"pcr_oi"`
	PCRRSI         float64 `json:"pcr_rsi"` // RSI of the PCR series, 0..100
	Interpretation string  `json:"interpretation"`
}

// MaxPainValue locates spot relative to the options max-pain strike.
type MaxPainValue struct {
	MaxPainStrike float64 `json:"max_pain_strike"`
	SpotPrice     float64 `json:"spot_price"`
	DistancePct   float64 `json:"distance_pct"`
	PutCallRatio  float64 `json:"put_call_ratio"`
}

// GEXValue is the dealer gamma-exposure profile.
type GEXValue struct {
	SpotPrice      float64            `json:"spot_price"`
	TotalGEX       float64            `json:"total_gex"`
	ZeroGammaLevel float64            `json:"zero_gamma_level"`
	GEXByStrike    map[string]float64 `json:"gex_by_strike,omitempty"`
}

// VannaValue is the aggregate vanna exposure.
type VannaValue struct {
	TotalVanna     float64 `json:"total_vanna"`
	Interpretation string  `json:"interpretation"`
}

// IVRankValue positions current implied volatility in its 1y range.
type IVRankValue struct {
	CurrentIV      float64 `json:"current_iv"`
	IVRank         float64 `json:"iv_rank"` // 0..100
	IVPercentile   float64 `json:"iv_percentile"`
	Interpretation string  `json:"interpretation"`
}

// OptionVWAPValue carries volume-weighted option prices and volumes.
type OptionVWAPValue struct {
	CallVWAP    float64 `json:"call_vwap"`
	PutVWAP     float64 `json:"put_vwap"`
	TotalVWAP   float64 `json:"total_vwap"`
	CallVolume  float64 `json:"call_volume"`
	PutVolume   float64 `json:"put_volume"`
	TotalVolume float64 `json:"total_volume"`
}

// OIDynamicsSummary is the roll-up of the per-expiration OI analysis.
// OverallSignal is opaque to the analyzer; it is carried for history replay.
type OIDynamicsSummary struct {
	OverallSignal       string  `json:"overall_signal"`
	Confidence          float64 `json:"confidence"`
	ExpirationsAnalyzed int     `json:"expirations_analyzed"`
	ActiveSignals       int     `json:"active_signals"`
}

// OIDynamicsValue is the open-interest dynamics report. The per-expiration
// detail is passed through uninterpreted.
type OIDynamicsValue struct {
	Summary     OIDynamicsSummary          `json:"summary"`
	Expirations map[string]json.RawMessage `json:"expirations_analysis,omitempty"`
}

// MagneticLevels are the dominant OI walls acting as price magnets.
type MagneticLevels struct {
	CallWall   float64 `json:"call_wall"`
	PutWall    float64 `json:"put_wall"`
	CallWallOI float64 `json:"call_wall_oi"`
	PutWallOI  float64 `json:"put_wall_oi"`
}

// PressureAnalysis is the wall-derived directional pressure estimate.
type PressureAnalysis struct {
	Direction  string   `json:"direction"`
	Confidence float64  `json:"confidence"`
	Reasoning  []string `json:"reasoning,omitempty"`
}

// ExpirationWallsValue describes strike walls for the nearest expirations.
type ExpirationWallsValue struct {
	MagneticLevels   MagneticLevels   `json:"magnetic_levels"`
	PressureAnalysis PressureAnalysis `json:"pressure_analysis"`
}
