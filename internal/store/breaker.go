package store

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/derivscope/derivscope/internal/domain"
)

// BreakerSource guards a document source with one circuit breaker per
// indicator kind. A flapping source trips its breaker open and reports
// absent immediately instead of eating its full lookup timeout every tick;
// other kinds are unaffected.
type BreakerSource struct {
	inner    DocSource
	breakers map[domain.IndicatorKind]*gobreaker.CircuitBreaker
}

// NewBreakerSource wraps inner with per-kind breakers. Breakers open after
// three consecutive failures and probe again after 60s.
func NewBreakerSource(inner DocSource) *BreakerSource {
	breakers := make(map[domain.IndicatorKind]*gobreaker.CircuitBreaker, len(domain.AllIndicatorKinds()))
	for _, kind := range domain.AllIndicatorKinds() {
		breakers[kind] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        string(kind),
			MaxRequests: 1,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})
	}
	return &BreakerSource{inner: inner, breakers: breakers}
}

// Fetch runs the lookup through the kind's breaker. An open breaker surfaces
// as a lookup failure, which the integrator records as absent.
func (s *BreakerSource) Fetch(ctx context.Context, kind domain.IndicatorKind, asset domain.Asset) ([]byte, error) {
	cb, ok := s.breakers[kind]
	if !ok {
		return s.inner.Fetch(ctx, kind, asset)
	}
	v, err := cb.Execute(func() (any, error) {
		return s.inner.Fetch(ctx, kind, asset)
	})
	if err != nil {
		return nil, err
	}
	b, _ := v.([]byte)
	return b, nil
}
