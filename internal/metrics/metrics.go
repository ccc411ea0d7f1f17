// Package metrics exposes prometheus instrumentation for the HTTP
// surface and the scoring and assistant pipelines. All collectors live
// in a private registry so tests never collide on the global one.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shafaf"

// Metrics holds every collector the service records.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge

	assessments       *prometheus.CounterVec
	scores            prometheus.Histogram
	alerts            *prometheus.CounterVec
	assistantRequests *prometheus.CounterVec
	storeLookups      *prometheus.CounterVec
}

// New builds and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	httpInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
		},
	)
	assessments := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "assessments_total",
			Help:      "Total contract assessments by risk level.",
		},
		[]string{"level"},
	)
	scores := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "score",
			Help:      "Distribution of model scores. Bucket edges sit on the band cutoffs.",
			Buckets:   []float64{0.1, 0.25, 0.45, 0.65, 0.85, 0.95},
		},
	)
	alerts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "alerts_total",
			Help:      "Total high and critical assessments routed to the alert topic.",
		},
		[]string{"level"},
	)
	assistantRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "requests_total",
			Help:      "Total assistant exchanges by intent and language.",
		},
		[]string{"intent", "language"},
	)
	storeLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "lookups_total",
			Help:      "Total citizen and bill lookups by outcome.",
		},
		[]string{"result"},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		httpInFlight,
		assessments,
		scores,
		alerts,
		assistantRequests,
		storeLookups,
	)

	return &Metrics{
		registry:          registry,
		httpRequests:      httpRequests,
		httpDuration:      httpDuration,
		httpInFlight:      httpInFlight,
		assessments:       assessments,
		scores:            scores,
		alerts:            alerts,
		assistantRequests: assistantRequests,
		storeLookups:      storeLookups,
	}
}

// Handler serves the exposition endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count, duration, and in-flight gauge.
// Unmatched routes share one path label to bound series cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(recorder, r)

		path := r.URL.Path
		if recorder.statusCode == http.StatusNotFound {
			path = "unmatched"
		}
		m.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordAssessment counts a scored contract and observes its score.
func (m *Metrics) RecordAssessment(level string, score float64) {
	m.assessments.WithLabelValues(level).Inc()
	m.scores.Observe(score)
}

// RecordAlert counts an assessment routed to the alert topic.
func (m *Metrics) RecordAlert(level string) {
	m.alerts.WithLabelValues(level).Inc()
}

// RecordAssistantExchange counts one classified assistant reply.
func (m *Metrics) RecordAssistantExchange(intent, language string) {
	m.assistantRequests.WithLabelValues(intent, language).Inc()
}

// RecordStoreLookup counts a citizen or bill lookup outcome. Results are
// "found", "not_found", "invalid", and "error".
func (m *Metrics) RecordStoreLookup(result string) {
	m.storeLookups.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
