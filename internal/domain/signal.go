package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Direction is the trade-direction label produced by analysis.
type Direction string

const (
	DirectionBullish Direction = "BULLISH"
	DirectionBearish Direction = "BEARISH"
	DirectionNeutral Direction = "NEUTRAL"
)

// Strength classifies emitted signals against the strong-threshold cutoff.
type Strength string

const (
	StrengthStrong   Strength = "STRONG"
	StrengthModerate Strength = "MODERATE"
)

// GroupResult is the outcome of one analysis group: a direction vote, a
// confidence in [0,1] centered at the 0.5 neutral line, and the ordered
// reasons that moved it.
type GroupResult struct {
	Name       string          `json:"name"`
	Direction  Direction       `json:"direction"`
	Confidence float64         `json:"confidence"`
	Reasons    []string        `json:"reasons,omitempty"`
	Indicators []IndicatorKind `json:"indicators,omitempty"`
}

// Signal is an emitted directional call with full provenance. Once logged it
// is historical and never mutated.
type Signal struct {
	Asset      Asset     `json:"asset"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
	Strength   Strength  `json:"strength"`

	Futures GroupResult `json:"futures_group"`
	Options GroupResult `json:"options_group"`
	Timing  GroupResult `json:"timing_group"`

	Reasoning  []string      `json:"reasoning"`
	ConfigHash string        `json:"config_hash"`
	Quality    QualityReport `json:"quality"`
	SpotPrice  *float64      `json:"spot_price,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Groups returns the three group results in evaluation order.
func (s *Signal) Groups() []GroupResult {
	return []GroupResult{s.Futures, s.Options, s.Timing}
}

// DedupKey throttles repeated emissions of the same call.
type DedupKey struct {
	Asset     Asset     `json:"asset"`
	Direction Direction `json:"direction"`
}

// DedupKey returns the throttling key for this signal.
func (s *Signal) DedupKey() DedupKey {
	return DedupKey{Asset: s.Asset, Direction: s.Direction}
}

// Hash returns the stable 12-hex fingerprint used as the key in the
// persisted dedup map.
func (k DedupKey) Hash() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", k.Asset, k.Direction)))
	return hex.EncodeToString(sum[:])[:12]
}
