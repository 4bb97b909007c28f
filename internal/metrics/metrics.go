// Package metrics exposes run-loop instrumentation as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scrambleopt/scrambleopt/internal/optimization"
)

// RunMetrics implements the driver's Observer interface over a set of
// Prometheus collectors.
type RunMetrics struct {
	iterations   prometheus.Counter
	accepted     prometheus.Counter
	runs         *prometheus.CounterVec
	bestScore    prometheus.Gauge
	runDurations prometheus.Histogram
}

// New creates the collector set and registers it with reg. Pass
// prometheus.DefaultRegisterer to publish through the default /metrics
// handler.
func New(reg prometheus.Registerer) *RunMetrics {
	m := &RunMetrics{
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scrambleopt",
			Name:      "iterations_total",
			Help:      "Optimization iterations executed across all runs.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scrambleopt",
			Name:      "moves_accepted_total",
			Help:      "Candidate moves accepted across all runs.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scrambleopt",
			Name:      "runs_total",
			Help:      "Finished runs by outcome.",
		}, []string{"outcome"}),
		bestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scrambleopt",
			Name:      "last_best_score",
			Help:      "Best objective value of the most recently finished run.",
		}),
		runDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scrambleopt",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of finished runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}
	reg.MustRegister(m.iterations, m.accepted, m.runs, m.bestScore, m.runDurations)
	return m
}

// ObserveIteration records one completed iteration.
func (m *RunMetrics) ObserveIteration(accepted bool) {
	m.iterations.Inc()
	if accepted {
		m.accepted.Inc()
	}
}

// ObserveRun records a finished run.
func (m *RunMetrics) ObserveRun(outcome optimization.Outcome, elapsed time.Duration, best float64) {
	m.runs.WithLabelValues(string(outcome)).Inc()
	m.bestScore.Set(best)
	m.runDurations.Observe(elapsed.Seconds())
}
