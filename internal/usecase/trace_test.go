package usecase

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestTraceMetaFromContext(t *testing.T) {
	if traceID, spanID := traceMetaFromContext(context.Background()); traceID != "" || spanID != "" {
		t.Fatalf("expected empty ids for untraced context, got %q %q", traceID, spanID)
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02},
		SpanID:     trace.SpanID{0x03},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	traceID, spanID := traceMetaFromContext(ctx)
	if traceID != sc.TraceID().String() || spanID != sc.SpanID().String() {
		t.Fatalf("unexpected ids: %q %q", traceID, spanID)
	}
}

func TestStartUsecaseSpan_UntracedIsNonRecording(t *testing.T) {
	ctx := context.Background()
	got, span := startUsecaseSpan(ctx, "usecase.Test", sportAttr(nil)...)
	defer span.End()

	if got != ctx {
		t.Fatalf("expected untraced context to pass through")
	}
	if span.IsRecording() {
		t.Fatalf("expected non-recording span")
	}
}
