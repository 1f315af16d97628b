package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcomes tracked on the public redirect path.
const (
	OutcomeFallback = "fallback"
	OutcomeExact    = "exact"
	OutcomeSuggest  = "suggest"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeOverload = "overload"
)

// Metrics holds the application's Prometheus collectors. A nil *Metrics is
// valid and turns every method into a no-op, which keeps tests free of
// registry bookkeeping.
type Metrics struct {
	registry *prometheus.Registry

	resolutions     *prometheus.CounterVec
	visitEvents     prometheus.Counter
	visitFlushes    prometheus.Counter
	visitDrops      prometheus.Counter
	visitQueueDrops prometheus.Counter
}

// New creates a metrics set backed by its own registry, pre-populated with
// the standard process and Go runtime collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tinypath_resolutions_total",
			Help: "Redirect resolutions by outcome.",
		}, []string{"outcome"}),
		visitEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinypath_visit_events_total",
			Help: "Visit events enqueued for batching.",
		}),
		visitFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinypath_visit_flushes_total",
			Help: "Visit count batches flushed to the document store.",
		}),
		visitDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinypath_visit_drops_total",
			Help: "Visit events dropped because the document was gone.",
		}),
		visitQueueDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinypath_visit_queue_drops_total",
			Help: "Visit events dropped because the batcher queue was saturated.",
		}),
	}

	registry.MustRegister(m.resolutions, m.visitEvents, m.visitFlushes, m.visitDrops, m.visitQueueDrops)

	return m
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterRenderQueueDepth exposes the render pool backlog as a gauge.
func (m *Metrics) RegisterRenderQueueDepth(depth func() int) {
	if m == nil {
		return
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "tinypath_render_queue_depth",
		Help: "Render tasks waiting for a worker.",
	}, func() float64 {
		return float64(depth())
	}))
}

// Resolution counts one resolution with the given outcome.
func (m *Metrics) Resolution(outcome string) {
	if m == nil {
		return
	}

	m.resolutions.WithLabelValues(outcome).Inc()
}

// VisitEvent counts one enqueued visit event.
func (m *Metrics) VisitEvent() {
	if m == nil {
		return
	}

	m.visitEvents.Inc()
}

// VisitFlush counts one flushed batch.
func (m *Metrics) VisitFlush() {
	if m == nil {
		return
	}

	m.visitFlushes.Inc()
}

// VisitDrop counts one dropped visit event.
func (m *Metrics) VisitDrop() {
	if m == nil {
		return
	}

	m.visitDrops.Inc()
}

// VisitQueueDrop counts one visit event lost to queue saturation.
func (m *Metrics) VisitQueueDrop() {
	if m == nil {
		return
	}

	m.visitQueueDrops.Inc()
}
