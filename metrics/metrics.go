// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// transform outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeUpstream = "upstream_error"
	OutcomeBusy     = "busy"
	OutcomeError    = "error"
)

type Metrics struct {
	registry          *prometheus.Registry
	TransformRequests *prometheus.CounterVec
	TransformDuration prometheus.Histogram
	Uploads           *prometheus.CounterVec
}

// New registers the collectors on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TransformRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transform_requests_total",
			Help: "Image transform requests by outcome.",
		}, []string{"outcome"}),
		TransformDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transform_duration_seconds",
			Help:    "Time spent producing a transformed variant.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Stored originals by source.",
		}, []string{"source"}),
	}
	m.registry.MustRegister(
		m.TransformRequests,
		m.TransformDuration,
		m.Uploads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveTransform records one transform attempt.
func (m *Metrics) ObserveTransform(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TransformRequests.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.TransformDuration.Observe(elapsed.Seconds())
	}
}

// ObserveUpload records a stored original; source is "file", "url" or "ai".
func (m *Metrics) ObserveUpload(source string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(source).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
