// Package metrics provides observability for the registration module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for registrant operations.
type Metrics struct {
	ManualMutations *prometheus.CounterVec
	CollectionSize  *prometheus.GaugeVec
}

// New creates and registers all registration metrics.
func New() *Metrics {
	return &Metrics{
		ManualMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eventdesk_registration_manual_mutations_total",
			Help: "Manual registrant mutations by operation",
		}, []string{"operation"}), // operation: "create", "update", "delete"

		CollectionSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eventdesk_registration_collection_size",
			Help: "Registrants currently held per collection kind",
		}, []string{"kind"}), // kind: "external", "manual"
	}
}

// IncManualMutation records one manual mutation.
func (m *Metrics) IncManualMutation(operation string) {
	if m != nil {
		m.ManualMutations.WithLabelValues(operation).Inc()
	}
}

// SetCollectionSize records the current collection sizes after a pass.
func (m *Metrics) SetCollectionSize(external, manual int) {
	if m != nil {
		m.CollectionSize.WithLabelValues("external").Set(float64(external))
		m.CollectionSize.WithLabelValues("manual").Set(float64(manual))
	}
}
