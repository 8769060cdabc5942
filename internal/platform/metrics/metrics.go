// Package metrics holds the cross-cutting HTTP metrics; domain modules keep
// their own metrics packages.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the shared Prometheus metrics for the HTTP surface.
type Metrics struct {
	RequestLatency *prometheus.HistogramVec
	RequestsTotal  *prometheus.CounterVec
}

// New creates and registers the shared metrics.
func New() *Metrics {
	return &Metrics{
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventdesk_http_request_duration_seconds",
			Help:    "HTTP request duration by route and method",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),

		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eventdesk_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"method", "route", "status"}),
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(method, route).Observe(d.Seconds())
		m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	}
}
