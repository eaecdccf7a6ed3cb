// Package metrics exposes the pipeline's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the pipeline collectors registered on one registry.
type Metrics struct {
	TicksTotal        prometheus.Counter
	TickDuration      prometheus.Histogram
	SignalsEmitted    *prometheus.CounterVec
	SignalsSuppressed *prometheus.CounterVec
	SourcesAbsent     *prometheus.CounterVec
	RecordsWritten    prometheus.Counter
}

// Suppression reasons for the signals_suppressed_total counter.
const (
	ReasonAnalyzer = "analyzer"
	ReasonDedup    = "dedup"
)

// New registers the pipeline collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "derivscope_ticks_total",
			Help: "Completed analysis ticks.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "derivscope_tick_duration_seconds",
			Help:    "Wall time of one full tick.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		SignalsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "derivscope_signals_emitted_total",
			Help: "Signals accepted by the gate and recorded.",
		}, []string{"asset", "direction"}),
		SignalsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "derivscope_signals_suppressed_total",
			Help: "Observations that produced no dispatched signal.",
		}, []string{"asset", "reason"}),
		SourcesAbsent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "derivscope_sources_absent_total",
			Help: "Indicator sources absent from a snapshot.",
		}, []string{"indicator"}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "derivscope_history_records_total",
			Help: "History records written.",
		}),
	}
	reg.MustRegister(
		m.TicksTotal, m.TickDuration, m.SignalsEmitted,
		m.SignalsSuppressed, m.SourcesAbsent, m.RecordsWritten,
	)
	return m
}
