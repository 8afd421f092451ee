package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/san-kum/leadlag/internal/design"
)

// Optimization outcomes recorded by leadlag_optimizations_total.
const (
	OutcomeSuccess     = "success"
	OutcomeInterrupted = "interrupted"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
)

// Metrics holds the collectors exported on /metrics. Each server owns its
// registry so tests can build several handlers side by side.
type Metrics struct {
	registry      *prometheus.Registry
	optimizations *prometheus.CounterVec
	duration      prometheus.Histogram
	evaluations   prometheus.Counter
	faults        *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		optimizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadlag_optimizations_total",
				Help: "Optimization requests by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leadlag_optimization_duration_seconds",
				Help:    "Wall time of the compensator search",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		evaluations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leadlag_objective_evaluations_total",
				Help: "Objective evaluations performed by the optimizer",
			},
		),
		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadlag_objective_rejections_total",
				Help: "Candidates the objective rejected, by status",
			},
			[]string{"status"},
		),
	}
	m.registry.MustRegister(
		m.optimizations, m.duration, m.evaluations, m.faults,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) observe(outcome string, res *design.Result, elapsed time.Duration) {
	m.optimizations.WithLabelValues(outcome).Inc()
	if res == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	m.evaluations.Add(float64(res.Search.Evaluations))
	m.faults.WithLabelValues("invalid").Add(float64(res.Invalid))
	m.faults.WithLabelValues("fault").Add(float64(res.Faults))
}
