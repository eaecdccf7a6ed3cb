package domain

import "time"

// Quality grades how complete a snapshot is relative to the registered
// source set. The labels are ordered POOR < ACCEPTABLE < GOOD < EXCELLENT.
type Quality string

const (
	QualityPoor       Quality = "POOR"
	QualityAcceptable Quality = "ACCEPTABLE"
	QualityGood       Quality = "GOOD"
	QualityExcellent  Quality = "EXCELLENT"
)

// Rank maps a quality label to its position in the ordering. Unknown labels
// rank below POOR so a corrupted value can never satisfy an admission floor.
func (q Quality) Rank() int {
	switch q {
	case QualityPoor:
		return 1
	case QualityAcceptable:
		return 2
	case QualityGood:
		return 3
	case QualityExcellent:
		return 4
	default:
		return 0
	}
}

// GradeQuality applies the completeness cutoffs: EXCELLENT at >=80% of
// registered sources, GOOD at >=60%, ACCEPTABLE at >=40%, POOR below.
func GradeQuality(available, registered int) Quality {
	if registered <= 0 {
		return QualityPoor
	}
	pct := float64(available) / float64(registered)
	switch {
	case pct >= 0.8:
		return QualityExcellent
	case pct >= 0.6:
		return QualityGood
	case pct >= 0.4:
		return QualityAcceptable
	default:
		return QualityPoor
	}
}

// QualityReport is the availability summary attached to every snapshot.
// AbsentReasons records why each missing source was absent (lookup error,
// empty store, timeout) for the history record.
type QualityReport struct {
	Status           Quality                  `json:"status"`
	Available        int                      `json:"available"`
	Registered       int                      `json:"registered"`
	AvailableSources []IndicatorKind          `json:"available_sources"`
	Missing          []IndicatorKind          `json:"missing,omitempty"`
	AbsentReasons    map[IndicatorKind]string `json:"absent_reasons,omitempty"`
}

// Completeness returns the available fraction in [0,1].
func (r QualityReport) Completeness() float64 {
	if r.Registered == 0 {
		return 0
	}
	return float64(r.Available) / float64(r.Registered)
}

// Snapshot is one integrated per-asset observation. It is immutable once the
// integrator has sealed it; a source that failed its lookup is simply nil.
type Snapshot struct {
	Asset       Asset     `json:"asset"`
	CollectedAt time.Time `json:"collected_at"`
	SpotPrice   *float64  `json:"spot_price,omitempty"`

	Futures         *FuturesValue         `json:"futures,omitempty"`
	Liquidations    *LiquidationsValue    `json:"liquidations,omitempty"`
	PCR             *PCRValue             `json:"pcr,omitempty"`
	MaxPain         *MaxPainValue         `json:"max_pain,omitempty"`
	GEX             *GEXValue             `json:"gex,omitempty"`
	Vanna           *VannaValue           `json:"vanna,omitempty"`
	IVRank          *IVRankValue          `json:"iv_rank,omitempty"`
	OptionVWAP      *OptionVWAPValue      `json:"option_vwap,omitempty"`
	OIDynamics      *OIDynamicsValue      `json:"oi_dynamics,omitempty"`
	ExpirationWalls *ExpirationWallsValue `json:"expiration_walls,omitempty"`

	Quality QualityReport `json:"quality"`
}

// Has reports whether the given source carried a value.
func (s *Snapshot) Has(kind IndicatorKind) bool {
	switch kind {
	case KindFutures:
		return s.Futures != nil
	case KindLiquidations:
		return s.Liquidations != nil
	case KindPCR:
		return s.PCR != nil
	case KindMaxPain:
		return s.MaxPain != nil
	case KindGEX:
		return s.GEX != nil
	case KindVanna:
		return s.Vanna != nil
	case KindIVRank:
		return s.IVRank != nil
	case KindOptionVWAP:
		return s.OptionVWAP != nil
	case KindOIDynamics:
		return s.OIDynamics != nil
	case KindExpirationWalls:
		return s.ExpirationWalls != nil
	default:
		return false
	}
}

// Seal resolves the spot price, derives the availability sets, and grades
// quality. The integrator calls it exactly once after all lookups; tests use
// it to build snapshots by hand.
func (s *Snapshot) Seal(absentReasons map[IndicatorKind]string) {
	kinds := AllIndicatorKinds()
	available := make([]IndicatorKind, 0, len(kinds))
	var missing []IndicatorKind
	for _, k := range kinds {
		if s.Has(k) {
			available = append(available, k)
		} else {
			missing = append(missing, k)
		}
	}

	s.resolveSpotPrice()

	s.Quality = QualityReport{
		Status:           GradeQuality(len(available), len(kinds)),
		Available:        len(available),
		Registered:       len(kinds),
		AvailableSources: available,
		Missing:          missing,
	}
	if len(absentReasons) > 0 {
		s.Quality.AbsentReasons = absentReasons
	}
}

// resolveSpotPrice takes the first non-null carrier in priority order:
// futures, gex, max_pain, option_vwap.
func (s *Snapshot) resolveSpotPrice() {
	if s.SpotPrice != nil {
		return
	}
	switch {
	case s.Futures != nil && s.Futures.Price != 0:
		price := s.Futures.Price
		s.SpotPrice = &price
	case s.GEX != nil && s.GEX.SpotPrice != 0:
		price := s.GEX.SpotPrice
		s.SpotPrice = &price
	case s.MaxPain != nil && s.MaxPain.SpotPrice != 0:
		price := s.MaxPain.SpotPrice
		s.SpotPrice = &price
	case s.OptionVWAP != nil && s.OptionVWAP.TotalVWAP != 0:
		price := s.OptionVWAP.TotalVWAP
		s.SpotPrice = &price
	}
}
