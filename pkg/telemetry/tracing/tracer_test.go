package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/tabula/pkg/config"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewWithProvider(tp), rec
}

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if tracer.Enabled() {
		t.Error("expected disabled tracer")
	}

	ctx, span := tracer.Start(context.Background(), "export")
	defer span.End()
	if TraceID(ctx) != "" {
		t.Error("expected no trace id from noop tracer")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error: %v", err)
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil, "test"); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestTracer_NilIsNoop(t *testing.T) {
	var tracer *Tracer
	_, span := tracer.Start(context.Background(), "export")
	span.End()
	if tracer.Enabled() {
		t.Error("nil tracer reported enabled")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error: %v", err)
	}
}

func TestTracer_RecordsSpans(t *testing.T) {
	tracer, rec := newRecordingTracer(t)

	ctx, parent := tracer.Start(context.Background(), "export",
		trace.WithAttributes(ExportAttributes("exp-1", "product", "csv")...))
	_, child := tracer.Start(ctx, "export.batch")
	SetBatchAttributes(child, 0, 2, 0)
	child.End()
	AddStateEvent(parent, "created", "scope_resolved")
	SetError(parent, errors.New("boom"))
	parent.End()

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	batch, export := spans[0], spans[1]
	if batch.Name() != "export.batch" || export.Name() != "export" {
		t.Errorf("unexpected span names %q, %q", batch.Name(), export.Name())
	}
	if batch.Parent().SpanID() != export.SpanContext().SpanID() {
		t.Error("batch span is not a child of export span")
	}
	if export.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", export.Status().Code)
	}
	if len(export.Events()) < 2 {
		t.Errorf("expected state and exception events, got %d", len(export.Events()))
	}
}

func TestSetError_NilSetsOK(t *testing.T) {
	tracer, rec := newRecordingTracer(t)

	_, span := tracer.Start(context.Background(), "export.persist")
	SetError(span, nil)
	span.End()

	if got := rec.Ended()[0].Status().Code; got != codes.Ok {
		t.Errorf("expected OK status, got %v", got)
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{SamplerAlways, 0, false},
		{SamplerNever, 0, false},
		{SamplerRatio, 0.5, false},
		{SamplerRatio, 1.5, true},
		{"sometimes", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			_, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Errorf("createSampler(%q, %v) error = %v, wantErr %v", tt.strategy, tt.ratio, err, tt.wantErr)
			}
		})
	}
}

func TestHTTPMiddleware_ExtractsTraceParent(t *testing.T) {
	traceparent := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/exports", nil)
	req.Header.Set("traceparent", traceparent)
	rec := httptest.NewRecorder()
	HTTPMiddleware(handler).ServeHTTP(rec, req)

	if seen != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("unexpected trace id %q", seen)
	}
	if got := rec.Header().Get("X-Trace-ID"); got != seen {
		t.Errorf("X-Trace-ID = %q, want %q", got, seen)
	}
}

func TestDetach_KeepsSpanDropsDeadline(t *testing.T) {
	tracer, _ := newRecordingTracer(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	ctx, span := tracer.Start(ctx, "http")
	defer span.End()

	detached := Detach(ctx)
	cancel()

	if detached.Err() != nil {
		t.Error("detached context was cancelled with its parent")
	}
	if TraceID(detached) != TraceID(ctx) {
		t.Error("detached context lost the trace id")
	}
}
