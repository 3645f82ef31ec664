package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracing_CreatesSpan(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	handler := Tracing("arcade-api")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/tours", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got, want := spans[0].Name(), "GET /tours"; got != want {
		t.Errorf("span name = %q, want %q", got, want)
	}
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestTracing_PropagatesContext(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	var capturedTraceID, capturedSpanID string
	handler := Tracing("arcade-api")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedTraceID = GetTraceID(r)
		capturedSpanID = GetSpanID(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/tours", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if capturedTraceID == "" {
		t.Error("expected non-empty trace ID")
	}
	if capturedSpanID == "" {
		t.Error("expected non-empty span ID")
	}

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got := spans[0].SpanContext().TraceID().String(); got != capturedTraceID {
		t.Errorf("trace ID mismatch: span has %s, handler saw %s", got, capturedTraceID)
	}
	if got := spans[0].SpanContext().SpanID().String(); got != capturedSpanID {
		t.Errorf("span ID mismatch: span has %s, handler saw %s", got, capturedSpanID)
	}
}

func TestTracing_SpanNames(t *testing.T) {
	tests := []struct {
		method       string
		path         string
		expectedName string
	}{
		{http.MethodGet, "/tours", "GET /tours"},
		{http.MethodPut, "/tours/123", "PUT /tours/123"},
		{http.MethodGet, "/tours/share/abc", "GET /tours/share/abc"},
		{http.MethodPost, "/upload/single", "POST /upload/single"},
	}

	for _, tt := range tests {
		t.Run(tt.expectedName, func(t *testing.T) {
			spanRecorder := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
			otel.SetTracerProvider(tp)
			defer tp.Shutdown(context.Background())

			handler := Tracing("arcade-api")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			spans := spanRecorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}
			if spans[0].Name() != tt.expectedName {
				t.Errorf("span name = %q, want %q", spans[0].Name(), tt.expectedName)
			}
		})
	}
}

func TestGetTraceID_NoActiveSpan(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/tours", nil)

	if got := GetTraceID(req); got != "" {
		t.Errorf("trace ID = %q, want empty for request without span", got)
	}
	if got := GetSpanID(req); got != "" {
		t.Errorf("span ID = %q, want empty for request without span", got)
	}
}
