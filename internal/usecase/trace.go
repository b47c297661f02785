package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var usecaseTracer = otel.Tracer("prizepicks-feed/internal/usecase")

// startUsecaseSpan only opens a child of an existing span. Untraced callers such as
// feedctl or the in-process scheduler get a non-recording span.
func startUsecaseSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return usecaseTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func sportAttr(sportID *int64) []attribute.KeyValue {
	if sportID == nil {
		return nil
	}
	return []attribute.KeyValue{attribute.Int64("sport.id", *sportID)}
}

// traceMetaFromContext returns the hex trace and span ids, or empty strings when untraced.
func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanContextFromContext(ctx)
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
