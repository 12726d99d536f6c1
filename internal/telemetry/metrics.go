package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the engine's Prometheus collectors. They are registered
// on a private registry: this is a batch tool with no scrape endpoint, so
// callers gather and print on demand instead of exposing HTTP.
//
// All recording helpers are nil-safe so library code runs unchanged when
// telemetry is disabled.
type Metrics struct {
	registry *prometheus.Registry

	RulesEvaluated     *prometheus.CounterVec
	RowsEvaluated      prometheus.Counter
	ViolationsFound    prometheus.Counter
	FilesQuarantined   prometheus.Counter
	EvaluationDuration prometheus.Histogram
}

// NewMetrics creates and registers the engine collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RulesEvaluated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hvx_rules_evaluated_total",
				Help: "Rules evaluated, by rule kind",
			},
			[]string{"kind"},
		),
		RowsEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hvx_rows_evaluated_total",
				Help: "Measurement rows surviving time filters and evaluated",
			},
		),
		ViolationsFound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hvx_violations_found_total",
				Help: "Contiguous violation intervals detected",
			},
		),
		FilesQuarantined: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hvx_rule_files_quarantined_total",
				Help: "Rule definition files skipped during discovery",
			},
		),
		EvaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hvx_evaluation_duration_seconds",
				Help:    "Wall time of one rule evaluation over one table",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
		),
	}

	m.registry.MustRegister(
		m.RulesEvaluated,
		m.RowsEvaluated,
		m.ViolationsFound,
		m.FilesQuarantined,
		m.EvaluationDuration,
	)
	return m
}

// Registry exposes the private registry for callers that gather metrics
// at the end of a run.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RuleEvaluated records one rule evaluation with its row count and wall
// time.
func (m *Metrics) RuleEvaluated(kind string, rows int, seconds float64) {
	if m == nil {
		return
	}
	m.RulesEvaluated.WithLabelValues(kind).Inc()
	m.RowsEvaluated.Add(float64(rows))
	m.EvaluationDuration.Observe(seconds)
}

// ViolationsDetected records violation intervals found for one rule.
func (m *Metrics) ViolationsDetected(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ViolationsFound.Add(float64(n))
}

// FileQuarantined records one skipped rule file.
func (m *Metrics) FileQuarantined() {
	if m == nil {
		return
	}
	m.FilesQuarantined.Inc()
}
