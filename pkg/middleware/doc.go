// Package middleware provides HTTP middleware for the form transport.
//
// This package includes:
//   - Prometheus request and live-session metrics
//   - OpenTelemetry request tracing
//
// Both label requests by their chi route pattern ("/forms/{id}/submit"),
// never by the raw path, to keep label cardinality bounded.
//
// # Prometheus Metrics
//
//	m := middleware.NewMetrics(middleware.WithNamespace("myapp"))
//	r := chi.NewRouter()
//	r.Use(m.Handler)
//	r.Handle("/metrics", promhttp.Handler())
//
// Metrics collected:
//   - formstate_http_requests_total: Counter by route, method and status code
//   - formstate_http_request_duration_seconds: Histogram by route
//   - formstate_live_sessions: Gauge of open live sessions
//   - formstate_websocket_errors_total: Counter of WebSocket errors by type
//
// # OpenTelemetry
//
//	r.Use(middleware.Tracing(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/metrics"
//	    }),
//	))
//
// The tracer comes from the global provider; configure it with
// otel.SetTracerProvider before serving.
package middleware
