// Package metrics exposes render outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rendis/flowgraph/internal/diagram"
)

// Recorder counts renders, failures, drawn shapes and unknown statuses.
// It implements diagram.Observer; UnknownStatus fits style.WithUnknownHook.
type Recorder struct {
	gatherer prometheus.Gatherer

	renders  *prometheus.CounterVec
	failures *prometheus.CounterVec
	shapes   prometheus.Counter
	duration prometheus.Histogram
	unknown  *prometheus.CounterVec
	patches  prometheus.Counter
}

// New registers the flowgraph metrics on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Recorder{
		gatherer: reg,
		renders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_renders_total",
			Help: "Completed graph renders",
		}, []string{"workflow"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_render_failures_total",
			Help: "Failed graph renders by error code",
		}, []string{"code"}),
		shapes: f.NewCounter(prometheus.CounterOpts{
			Name: "flowgraph_shapes_drawn_total",
			Help: "Shapes drawn onto surfaces",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowgraph_render_duration_seconds",
			Help:    "Time spent drawing a graph",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		unknown: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_unknown_status_total",
			Help: "Status lookups that fell back to the default style",
		}, []string{"status"}),
		patches: f.NewCounter(prometheus.CounterOpts{
			Name: "flowgraph_patches_applied_total",
			Help: "Non-empty patches applied by the watcher",
		}),
	}
}

// RenderCompleted implements diagram.Observer.
func (r *Recorder) RenderCompleted(workflow string, shapes int, elapsed time.Duration) {
	r.renders.WithLabelValues(workflow).Inc()
	r.shapes.Add(float64(shapes))
	r.duration.Observe(elapsed.Seconds())
}

// RenderFailed implements diagram.Observer.
func (r *Recorder) RenderFailed(_ string, code string) {
	r.failures.WithLabelValues(code).Inc()
}

// UnknownStatus counts a fallback lookup. An empty status is recorded as "none".
func (r *Recorder) UnknownStatus(status string) {
	if status == "" {
		status = "none"
	}
	r.unknown.WithLabelValues(status).Inc()
}

// PatchApplied counts a patch the watcher wrote out.
func (r *Recorder) PatchApplied() {
	r.patches.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

var _ diagram.Observer = (*Recorder)(nil)
