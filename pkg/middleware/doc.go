// Package middleware provides the net/http middleware of the document
// server.
//
// This package includes:
//   - Prometheus metrics (requests, durations, stream outcomes, upstream errors)
//   - OpenTelemetry server spans
//   - ULID request ids
//   - no-cache response headers
//
// All middleware has the func(http.Handler) http.Handler shape and plugs
// into chi:
//
//	metrics := middleware.NewMetrics()
//	r := chi.NewRouter()
//	r.Use(middleware.RequestID, middleware.OpenTelemetry(), metrics.Middleware, middleware.NoCache)
//	r.Handle("/metrics", metrics.Handler())
//
// # Prometheus Metrics
//
// Metrics are instance based, so tests and embedders can register them
// with their own registry:
//
//	reg := prometheus.NewRegistry()
//	metrics := middleware.NewMetrics(
//	    middleware.WithRegistry(reg),
//	    middleware.WithNamespace("myapp"),
//	)
//
// Handlers report how a request was answered with SetMode; streaming
// sessions report their outcome with RecordStreamOutcome.
//
// # OpenTelemetry
//
// OpenTelemetry opens a server span per request and stores it on the request
// context. Handlers reach it with SpanFromContext:
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	)
package middleware
