// Package metrics provides Prometheus metrics for the gesture and print servers.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option applies a configuration option to Metrics.
type Option func(*Metrics)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Metrics) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithProcessCollectors registers the Go runtime and process collectors.
func WithProcessCollectors() Option {
	return func(m *Metrics) {
		m.processCollectors = true
	}
}

// Metrics owns a private registry and every collector the servers record into.
type Metrics struct {
	namespace         string
	processCollectors bool
	registry          *prometheus.Registry

	framesTotal    prometheus.Counter
	providerErrors prometheus.Counter
	bodiesTracked  prometheus.Gauge
	eventsEmitted  *prometheus.CounterVec
	emitErrors     *prometheus.CounterVec
	wsClients      prometheus.Gauge
	printJobs      *prometheus.CounterVec
	printDuration  prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

// New creates Metrics registered on a fresh registry.
func New(opts ...Option) *Metrics {
	m := &Metrics{
		namespace: "attention",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.processCollectors {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	auto := promauto.With(m.registry)

	m.framesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "tracker",
		Name:      "frames_total",
		Help:      "Frames requested from the body-tracking provider",
	})
	m.providerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "tracker",
		Name:      "provider_errors_total",
		Help:      "Provider failures recovered by the acquisition loop",
	})
	m.bodiesTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "tracker",
		Name:      "bodies",
		Help:      "Bodies reported in the most recent frame",
	})
	m.eventsEmitted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "gesture",
		Name:      "events_emitted_total",
		Help:      "Events pushed to connected clients, by event name",
	}, []string{"event"})
	m.emitErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "gesture",
		Name:      "emit_errors_total",
		Help:      "Events that could not be delivered, by event name",
	}, []string{"event"})
	m.wsClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "ws",
		Name:      "clients",
		Help:      "Currently connected WebSocket clients",
	})
	m.printJobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "printer",
		Name:      "jobs_total",
		Help:      "Print jobs by outcome",
	}, []string{"status"})
	m.printDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "printer",
		Name:      "job_duration_seconds",
		Help:      "Time spent rendering and sending a slip",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by endpoint",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "method"})

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordFrame counts one provider poll and the number of bodies it reported.
func (m *Metrics) RecordFrame(bodies int) {
	m.framesTotal.Inc()
	m.bodiesTracked.Set(float64(bodies))
}

// RecordProviderError counts one failed provider poll.
func (m *Metrics) RecordProviderError() {
	m.framesTotal.Inc()
	m.providerErrors.Inc()
	m.bodiesTracked.Set(0)
}

// RecordEvent counts one emitted event.
func (m *Metrics) RecordEvent(name string) {
	m.eventsEmitted.WithLabelValues(name).Inc()
}

// RecordEmitError counts one event that could not be delivered.
func (m *Metrics) RecordEmitError(name string) {
	m.emitErrors.WithLabelValues(name).Inc()
}

// SetClients sets the connected WebSocket client gauge.
func (m *Metrics) SetClients(n int) {
	m.wsClients.Set(float64(n))
}

// RecordPrintJob counts a finished print job and its duration.
func (m *Metrics) RecordPrintJob(status string, d time.Duration) {
	m.printJobs.WithLabelValues(status).Inc()
	m.printDuration.Observe(d.Seconds())
}

// RecordHTTPRequest counts one HTTP request.
func (m *Metrics) RecordHTTPRequest(endpoint, method string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(endpoint, method).Observe(d.Seconds())
}

// Middleware wraps next and records request count and latency under endpoint.
func (m *Metrics) Middleware(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		m.RecordHTTPRequest(endpoint, r.Method, wrapped.statusCode, time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so streaming handlers keep working.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
