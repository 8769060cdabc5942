// Package metrics provides observability for reconciliation runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the reconciliation pipeline.
type Metrics struct {
	Runs          *prometheus.CounterVec
	PhaseDuration *prometheus.HistogramVec
	FetchedRows   prometheus.Histogram
}

// New creates and registers all reconciliation metrics.
func New() *Metrics {
	return &Metrics{
		Runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eventdesk_reconcile_runs_total",
			Help: "Reconciliation runs by outcome",
		}, []string{"outcome"}), // outcome: "success", "failure"

		PhaseDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventdesk_reconcile_phase_duration_seconds",
			Help:    "Duration of reconciliation phases",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"phase"}), // phase: "connect", "introspect", "fetch", "merge"

		FetchedRows: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventdesk_reconcile_fetched_rows",
			Help:    "External rows fetched per run",
			Buckets: []float64{0, 10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}
}

// ObservePhase records the duration of one run phase.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m != nil {
		m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
	}
}

// IncRun records one finished run.
func (m *Metrics) IncRun(outcome string) {
	if m != nil {
		m.Runs.WithLabelValues(outcome).Inc()
	}
}

// ObserveFetchedRows records how many external rows a run pulled.
func (m *Metrics) ObserveFetchedRows(n int) {
	if m != nil {
		m.FetchedRows.Observe(float64(n))
	}
}
