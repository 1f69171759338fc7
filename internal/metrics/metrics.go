// Package metrics holds the Prometheus instruments for the tier engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all Prometheus metrics for tiercast.
type Registry struct {
	// Pipeline metrics
	ComputeDuration *prometheus.HistogramVec
	ComputeRuns     *prometheus.CounterVec

	// Soft degradation metrics
	SoftFallbacks  *prometheus.CounterVec
	UpstreamErrors *prometheus.CounterVec

	// Persistence metrics
	PersistFailures *prometheus.CounterVec

	// Distribution cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// HTTP metrics
	HTTPDuration *prometheus.HistogramVec
}

// NewRegistry creates the metric set. Call Register once to attach it to a
// Prometheus registerer.
func NewRegistry() *Registry {
	return &Registry{
		ComputeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tiercast_compute_duration_seconds",
				Help:    "Duration of a full tier computation in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"result"},
		),

		ComputeRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiercast_compute_runs_total",
				Help: "Total tier computations by outcome",
			},
			[]string{"result"},
		),

		SoftFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiercast_soft_fallbacks_total",
				Help: "Total soft degradations by kind",
			},
			[]string{"kind"},
		),

		UpstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiercast_upstream_errors_total",
				Help: "Total upstream retrieval errors absorbed by source",
			},
			[]string{"source"},
		),

		PersistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiercast_persist_failures_total",
				Help: "Total failed durable writes by store",
			},
			[]string{"store"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiercast_cache_hits_total",
				Help: "Total distribution cache hits by posture",
			},
			[]string{"posture"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiercast_cache_misses_total",
				Help: "Total distribution cache misses by posture",
			},
			[]string{"posture"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tiercast_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"endpoint", "method", "status"},
		),
	}
}

// Register attaches every instrument to the registerer.
func (r *Registry) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		r.ComputeDuration,
		r.ComputeRuns,
		r.SoftFallbacks,
		r.UpstreamErrors,
		r.PersistFailures,
		r.CacheHits,
		r.CacheMisses,
		r.HTTPDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
