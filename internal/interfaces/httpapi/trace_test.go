package httpapi

import (
	"context"
	"errors"
	"testing"
)

func TestSpanAndTraceFilters(t *testing.T) {
	spans := map[string]bool{
		"httpapi.Handler.ListProjections": true,
		"httpapi.Handler.RunRefreshJob":   true,
		"httpapi.RequestLogging":          false,
		"httpapi.writeError":              false,
	}
	for name, want := range spans {
		if got := shouldCreateHTTPAPISpan(name); got != want {
			t.Errorf("shouldCreateHTTPAPISpan(%q)=%v want %v", name, got, want)
		}
	}

	paths := map[string]bool{
		"/healthz":        false,
		" /READYZ ":       false,
		"/livez":          false,
		"/v1/projections": true,
		"/docs":           true,
		"/":               true,
	}
	for path, want := range paths {
		if got := shouldTraceRequest(path); got != want {
			t.Errorf("shouldTraceRequest(%q)=%v want %v", path, got, want)
		}
	}
}

func TestStartSpan_NoParentIsNonRecording(t *testing.T) {
	ctx, span := startSpan(context.Background(), "httpapi.Handler.ListSports")
	defer span.End()

	if span.IsRecording() || span.SpanContext().IsValid() {
		t.Fatal("expected a non-recording span without a parent")
	}
	if ctx != context.Background() {
		t.Fatal("expected the context to be returned unchanged")
	}

	// no active span: must not panic
	markSpanError(ctx, 502, errors.New("upstream down"))
	markSpanError(ctx, 404, nil)
}
