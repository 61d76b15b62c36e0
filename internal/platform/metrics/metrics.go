package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the overlay service.
type Metrics struct {
	registry               *prometheus.Registry
	requestsTotal          prometheus.Counter
	errorsTotal            prometheus.Counter
	ingestedTotal          *prometheus.CounterVec
	droppedTotal           *prometheus.CounterVec
	activationsTotal       *prometheus.CounterVec
	deactivationsTotal     prometheus.Counter
	seeksTotal             prometheus.Counter
	placementsRefusedTotal prometheus.Counter
	activeSessions         prometheus.Gauge
}

// New creates and registers Prometheus metrics for the overlay service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlay_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlay_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	ingestedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlay_comments_ingested_total",
		Help: "Total number of comments accepted at ingestion, by format",
	}, []string{"format"})
	droppedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlay_comments_dropped_total",
		Help: "Total number of malformed comment records skipped at ingestion, by format",
	}, []string{"format"})
	activationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "overlay_activations_total",
		Help: "Total number of comments activated, by mode",
	}, []string{"mode"})
	deactivationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlay_deactivations_total",
		Help: "Total number of comments expired by their display timer",
	})
	seeksTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlay_seeks_total",
		Help: "Total number of seeks handled",
	})
	placementsRefusedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overlay_placements_refused_total",
		Help: "Total number of comments deferred because the allocator had no free slot, counted once per pass through their window",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "overlay_active_sessions",
		Help: "Number of open overlay sessions",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		ingestedTotal,
		droppedTotal,
		activationsTotal,
		deactivationsTotal,
		seeksTotal,
		placementsRefusedTotal,
		activeSessions,
	)

	return &Metrics{
		registry:               registry,
		requestsTotal:          requestsTotal,
		errorsTotal:            errorsTotal,
		ingestedTotal:          ingestedTotal,
		droppedTotal:           droppedTotal,
		activationsTotal:       activationsTotal,
		deactivationsTotal:     deactivationsTotal,
		seeksTotal:             seeksTotal,
		placementsRefusedTotal: placementsRefusedTotal,
		activeSessions:         activeSessions,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// AddIngested adds n accepted comments for the given ingestion format.
func (m *Metrics) AddIngested(format string, n int) {
	m.ingestedTotal.WithLabelValues(format).Add(float64(n))
}

// AddDropped adds n dropped records for the given ingestion format.
func (m *Metrics) AddDropped(format string, n int) {
	m.droppedTotal.WithLabelValues(format).Add(float64(n))
}

// IncActivations increments the activation counter for a mode.
func (m *Metrics) IncActivations(mode string) {
	m.activationsTotal.WithLabelValues(mode).Inc()
}

// IncDeactivations increments the deactivation counter.
func (m *Metrics) IncDeactivations() {
	m.deactivationsTotal.Inc()
}

// IncSeeks increments the seek counter.
func (m *Metrics) IncSeeks() {
	m.seeksTotal.Inc()
}

// IncPlacementsRefused increments the refused placement counter.
func (m *Metrics) IncPlacementsRefused() {
	m.placementsRefusedTotal.Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active sessions).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
