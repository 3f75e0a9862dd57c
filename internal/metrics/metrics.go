package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the overlay service.
type Metrics struct {
	registry *prometheus.Registry

	EvaluationsTotal  prometheus.Counter
	EvaluationDur     prometheus.Histogram
	PrimitivesTotal   *prometheus.CounterVec // labels: kind
	DrawingsCommitted *prometheus.CounterVec // labels: kind
	StoreSaveFailures prometheus.Counter
}

// New registers and returns all overlay metrics on a private registry so
// multiple instances (tests included) never collide.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EvaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "overlay_evaluations_total",
			Help: "Total script evaluations performed",
		}),
		EvaluationDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "overlay_evaluation_duration_seconds",
			Help:    "Script evaluation latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		PrimitivesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "overlay_primitives_total",
			Help: "Total primitives produced by evaluations (by kind)",
		}, []string{"kind"}),
		DrawingsCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "overlay_drawings_committed_total",
			Help: "Total drawings committed interactively (by kind)",
		}, []string{"kind"}),
		StoreSaveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "overlay_store_save_failures_total",
			Help: "Background persistence failures",
		}),
	}

	m.registry.MustRegister(
		m.EvaluationsTotal,
		m.EvaluationDur,
		m.PrimitivesTotal,
		m.DrawingsCommitted,
		m.StoreSaveFailures,
	)

	return m
}

// Handler returns the HTTP handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
