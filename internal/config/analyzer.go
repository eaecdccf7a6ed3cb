package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/derivscope/derivscope/internal/domain"
)

// ErrInvalidConfig wraps every load/validation failure so the CLI can map it
// to its dedicated exit code.
var ErrInvalidConfig = errors.New("invalid configuration")

// AnalyzerConfig fully determines the analyzer's output for a given snapshot.
// It is loaded once at startup, validated, normalized, fingerprinted, and
// never mutated during a run.
//
// Field order matters: the fingerprint hashes the canonical JSON encoding,
// which follows struct declaration order.
type AnalyzerConfig struct {
	// Group weights, normalized to sum to 1 on load.
	FuturesWeight float64 `json:"futures_weight" default:"0.35" validate:"gte=0"`
	OptionsWeight float64 `json:"options_weight" default:"0.45" validate:"gte=0"`
	TimingWeight  float64 `json:"timing_weight" default:"0.20" validate:"gte=0"`

	// Per-indicator tunables.
	PCRBullishThreshold  float64 `json:"pcr_bullish_threshold" default:"0.8" validate:"gt=0"`
	PCRBearishThreshold  float64 `json:"pcr_bearish_threshold" default:"1.2" validate:"gt=0"`
	PCROIExtremeHigh     float64 `json:"pcr_oi_extreme_high" default:"1.5" validate:"gt=0"`
	PCROIExtremeLow      float64 `json:"pcr_oi_extreme_low" default:"0.7" validate:"gt=0"`
	PCRRSIFear           float64 `json:"pcr_rsi_fear" default:"70" validate:"gte=0,lte=100"`
	PCRRSIGreed          float64 `json:"pcr_rsi_greed" default:"30" validate:"gte=0,lte=100"`
	MaxPainThreshold     float64 `json:"max_pain_threshold" default:"0.02" validate:"gte=0"`
	VannaThreshold       float64 `json:"vanna_threshold" validate:"gte=0"`
	FundingRateThreshold float64 `json:"funding_rate_threshold" default:"0.0001" validate:"gt=0"`
	LiqRatioHigh         float64 `json:"liq_ratio_high" default:"2.0" validate:"gt=0"`
	LiqRatioLow          float64 `json:"liq_ratio_low" default:"0.5" validate:"gt=0"`

	// Emission thresholds.
	MinConfidence   float64 `json:"min_confidence" default:"0.60" validate:"gte=0,lte=1"`
	StrongThreshold float64 `json:"strong_threshold" default:"0.75" validate:"gte=0,lte=1"`

	// Admission floors.
	MinDataSources int            `json:"min_data_sources" default:"2" validate:"gte=1"`
	MinDataQuality domain.Quality `json:"min_data_quality" default:"ACCEPTABLE" validate:"oneof=POOR ACCEPTABLE GOOD EXCELLENT"`

	// Confirmation flags.
	RequireFuturesConfirm bool `json:"require_futures_confirm"`
	RequireOptionsConfirm bool `json:"require_options_confirm"`
}

// DefaultAnalyzerConfig returns the production defaults with weights
// normalized and ready for fingerprinting.
func DefaultAnalyzerConfig() *AnalyzerConfig {
	cfg := &AnalyzerConfig{}
	_ = defaults.Set(cfg)
	_ = cfg.Normalize()
	return cfg
}

// LoadAnalyzerConfig reads the parameter set from a JSON file, layering
// defaults underneath and environment overrides on top, then validates,
// normalizes the group weights, and leaves the config immutable.
// An empty path loads pure defaults.
func LoadAnalyzerConfig(path string) (*AnalyzerConfig, error) {
	cfg := &AnalyzerConfig{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("%w: applying defaults: %v", ErrInvalidConfig, err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
		}
		if err := json.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets a deployment tweak individual parameters without
// editing the shipped file. Only scalar tunables are overridable.
func (c *AnalyzerConfig) applyEnvOverrides() error {
	floats := map[string]*float64{
		"DERIVSCOPE_FUTURES_WEIGHT":   &c.FuturesWeight,
		"DERIVSCOPE_OPTIONS_WEIGHT":   &c.OptionsWeight,
		"DERIVSCOPE_TIMING_WEIGHT":    &c.TimingWeight,
		"DERIVSCOPE_MIN_CONFIDENCE":   &c.MinConfidence,
		"DERIVSCOPE_STRONG_THRESHOLD": &c.StrongThreshold,
		"DERIVSCOPE_VANNA_THRESHOLD":  &c.VannaThreshold,
	}
	for name, dst := range floats {
		raw, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, name, raw, err)
		}
		*dst = v
	}
	if raw, ok := os.LookupEnv("DERIVSCOPE_MIN_DATA_SOURCES"); ok {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: DERIVSCOPE_MIN_DATA_SOURCES=%q: %v", ErrInvalidConfig, raw, err)
		}
		c.MinDataSources = v
	}
	if raw, ok := os.LookupEnv("DERIVSCOPE_MIN_DATA_QUALITY"); ok {
		c.MinDataQuality = domain.Quality(raw)
	}
	return nil
}

// Normalize divides each group weight by their sum so parameter sweeps do
// not need to coordinate them. Fails if the weights sum to zero.
func (c *AnalyzerConfig) Normalize() error {
	sum := c.FuturesWeight + c.OptionsWeight + c.TimingWeight
	if sum <= 0 || math.IsNaN(sum) {
		return fmt.Errorf("%w: group weights sum to %v", ErrInvalidConfig, sum)
	}
	c.FuturesWeight /= sum
	c.OptionsWeight /= sum
	c.TimingWeight /= sum
	return nil
}

// VannaCutoff is the effective minimum |vanna| for the vanna rule. A zero
// configured threshold falls back to the pinned 500 default.
func (c *AnalyzerConfig) VannaCutoff() float64 {
	if c.VannaThreshold > 0 {
		return c.VannaThreshold
	}
	return 500
}

// Hash returns the 8-hex fingerprint of the canonical serialization. The
// encoding follows struct field order, so reordering keys in the source JSON
// file cannot change the fingerprint.
func (c *AnalyzerConfig) Hash() string {
	b, err := json.Marshal(c)
	if err != nil {
		// Marshal of a flat struct of scalars cannot fail.
		panic(fmt.Sprintf("analyzer config marshal: %v", err))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:8]
}
