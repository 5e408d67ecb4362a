package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecorder() (*tracetest.SpanRecorder, trace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	return sr, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
}

func attr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_NamesSpanByRoute(t *testing.T) {
	sr, tp := newRecorder()

	r := chi.NewRouter()
	r.Use(Tracing(
		WithTracerProvider(tp),
		WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	))
	r.Post("/forms/{id}/submit", func(w http.ResponseWriter, r *http.Request) {
		if !trace.SpanFromContext(r.Context()).SpanContext().IsValid() {
			t.Error("expected a span in the handler context")
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/forms/signup/submit", nil))

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "POST /forms/{id}/submit" {
		t.Errorf("unexpected span name %q", span.Name())
	}
	if span.SpanKind() != trace.SpanKindServer {
		t.Errorf("expected server span, got %v", span.SpanKind())
	}
	if v, ok := attr(span, "http.status_code"); !ok || v.AsInt64() != 500 {
		t.Errorf("expected status code 500, got %v", v)
	}
	if v, ok := attr(span, "test.attr"); !ok || v.AsString() != "ok" {
		t.Errorf("expected custom attribute, got %v", v)
	}
	if span.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", span.Status().Code)
	}
}

func TestTracing_FilterSkipsTracing(t *testing.T) {
	sr, tp := newRecorder()

	nextCalled := false
	h := Tracing(
		WithTracerProvider(tp),
		WithRequestFilter(func(r *http.Request) bool { return r.URL.Path != "/metrics" }),
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		if trace.SpanFromContext(r.Context()).SpanContext().IsValid() {
			t.Error("expected no span when the filter skips tracing")
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !nextCalled {
		t.Fatal("expected next to be called")
	}
	if n := len(sr.Ended()); n != 0 {
		t.Errorf("expected no spans, got %d", n)
	}
}
