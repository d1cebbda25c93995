// Package metrics records evaluation counters with Prometheus.
//
// nysig is a short-lived CLI, so metrics are not served over HTTP. They are
// kept in a private registry and written in the text exposition format to a
// file that a node_exporter textfile collector can pick up.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/nysig/internal/model"
)

// Recorder implements engine.Observer using Prometheus.
type Recorder struct {
	registry *prometheus.Registry

	evaluations *prometheus.CounterVec
	signals     *prometheus.CounterVec
	ruleMatches *prometheus.CounterVec
	overrides   *prometheus.CounterVec
	lastSignals prometheus.Gauge
	latency     prometheus.Histogram
}

// New creates a recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nysig_evaluations_total",
				Help: "Total number of snapshot evaluations",
			},
			[]string{"outcome"},
		),
		signals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nysig_signals_total",
				Help: "Total number of emitted signals",
			},
			[]string{"kind", "action"},
		),
		ruleMatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nysig_rule_matches_total",
				Help: "Total number of rule matches",
			},
			[]string{"rule_id", "rule"},
		),
		overrides: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nysig_overrides_total",
				Help: "Total number of statistical override signals",
			},
			[]string{"position_size"},
		),
		lastSignals: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "nysig_last_evaluation_signals",
				Help: "Number of signals emitted by the most recent evaluation",
			},
		),
		latency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nysig_evaluation_duration_seconds",
				Help:    "Duration of snapshot evaluations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
	}
}

// RuleMatched records a matching rule.
func (r *Recorder) RuleMatched(rule model.Rule) {
	r.ruleMatches.WithLabelValues(strconv.Itoa(rule.ID), rule.Name).Inc()
}

// OverrideEmitted records a statistical override.
func (r *Recorder) OverrideEmitted(signal model.Signal) {
	r.overrides.WithLabelValues(signal.PositionSize).Inc()
}

// EvaluationFinished records the outcome, signal counts and latency.
func (r *Recorder) EvaluationFinished(signals []model.Signal, elapsed time.Duration, err error) {
	r.latency.Observe(elapsed.Seconds())
	if err != nil {
		r.evaluations.WithLabelValues("error").Inc()
		return
	}
	r.evaluations.WithLabelValues("ok").Inc()
	r.lastSignals.Set(float64(len(signals)))
	for _, s := range signals {
		r.signals.WithLabelValues(string(s.Kind()), s.ActionType).Inc()
	}
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
