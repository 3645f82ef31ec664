// Package metrics provides Prometheus metrics for the API server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names as constants for consistency.
const (
	MetricHTTPRequestsTotal   = "http_requests_total"
	MetricHTTPRequestDuration = "http_request_duration_seconds"
	MetricToursCreated        = "tours_created_total"
	MetricSharedTourViews     = "shared_tour_views_total"
	MetricUploadsTotal        = "uploads_total"
)

// Metrics contains Prometheus metrics for the server.
// All operations are thread-safe.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	toursCreated        prometheus.Counter
	sharedTourViews     prometheus.Counter
	uploadsTotal        *prometheus.CounterVec
}

// New creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func New() *Metrics {
	return &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1.0, 2.0},
			},
			[]string{"method", "path", "status"},
		),
		toursCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricToursCreated,
				Help: "Total number of tours created",
			},
		),
		sharedTourViews: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricSharedTourViews,
				Help: "Total number of shared tour link resolutions",
			},
		),
		uploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricUploadsTotal,
				Help: "Total number of media uploads by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.toursCreated,
		m.sharedTourViews,
		m.uploadsTotal,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveHTTPRequest records a completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration float64) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
}

// IncToursCreated increments the tours created counter.
func (m *Metrics) IncToursCreated() {
	m.toursCreated.Inc()
}

// IncSharedTourViews increments the shared tour views counter.
func (m *Metrics) IncSharedTourViews() {
	m.sharedTourViews.Inc()
}

// IncUploads increments the uploads counter for the given outcome
// ("ok", "rejected", or "error").
func (m *Metrics) IncUploads(outcome string) {
	m.uploadsTotal.WithLabelValues(outcome).Inc()
}

// Handler returns an http.Handler serving the metrics from the given registry
// in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
