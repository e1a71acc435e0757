package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "ssrdoc").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "ssrdoc",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the document server's collectors. Create one per registry.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	streamSessions  *prometheus.CounterVec
	upstreamErrors  prometheus.Counter
	registry        prometheus.Registerer
}

// NewMetrics registers the collectors:
//   - ssrdoc_requests_total{route,mode,status}
//   - ssrdoc_request_duration_seconds{route,mode}
//   - ssrdoc_stream_sessions_total{outcome}
//   - ssrdoc_upstream_errors_total
//
// Example:
//
//	metrics := middleware.NewMetrics(middleware.WithRegistry(reg))
//	r.Use(metrics.Middleware)
//	r.Handle("/metrics", metrics.Handler())
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of document requests",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "mode", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Time from request start until the response ended",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route", "mode"}),

		streamSessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stream_sessions_total",
			Help:        "Streaming sessions by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		upstreamErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "upstream_errors_total",
			Help:        "Failed enrichment fetches",
			ConstLabels: config.ConstLabels,
		}),

		registry: config.Registry,
	}
}

// requestLabels collects labels that are only known inside the handler.
type requestLabels struct {
	mode string
}

type labelsKey struct{}

// SetMode records how the current request was answered (static, sync,
// stream, asset). It is a no-op outside the metrics middleware.
func SetMode(ctx context.Context, mode string) {
	if l, ok := ctx.Value(labelsKey{}).(*requestLabels); ok {
		l.mode = mode
	}
}

// Middleware counts and times every request. The route label is the
// matched chi pattern, so it stays low-cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		labels := &requestLabels{mode: "none"}
		r = r.WithContext(context.WithValue(r.Context(), labelsKey{}, labels))

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := routePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requestDuration.WithLabelValues(route, labels.mode).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(route, labels.mode, strconv.Itoa(status)).Inc()
	})
}

// RecordStreamOutcome counts a finished streaming session.
func (m *Metrics) RecordStreamOutcome(outcome string) {
	m.streamSessions.WithLabelValues(outcome).Inc()
}

// RecordUpstreamError counts a failed enrichment fetch.
func (m *Metrics) RecordUpstreamError() {
	m.upstreamErrors.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if g, ok := m.registry.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
