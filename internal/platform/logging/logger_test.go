package logging

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerContextMirror(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core))

	var mirrored atomic.Int32
	SetMirror(func(ctx context.Context, level Level, msg string, args ...any) {
		if msg == "refresh done" && level == LevelInfo && len(args) == 2 {
			mirrored.Add(1)
		}
	})
	defer SetMirror(nil)

	logger.InfoContext(context.Background(), "refresh done", "sport_id", 7)
	logger.Info("not mirrored", "sport_id", 7)

	if got := mirrored.Load(); got != 1 {
		t.Fatalf("unexpected mirrored count: got=%d want=1", got)
	}
	if got := logs.Len(); got != 2 {
		t.Fatalf("unexpected log count: got=%d want=2", got)
	}
	fields := logs.All()[0].ContextMap()
	if fields["sport_id"] != int64(7) {
		t.Fatalf("unexpected sport_id field: %#v", fields["sport_id"])
	}
}

func TestZapFieldsOddArgs(t *testing.T) {
	t.Parallel()

	fields := zapFields([]any{"a", 1, 42, "b", "dangling"})
	if len(fields) != 3 {
		t.Fatalf("unexpected field count: got=%d want=3", len(fields))
	}
	if fields[1].Key != "arg" {
		t.Fatalf("non-string key should become arg, got=%s", fields[1].Key)
	}
	if fields[2].Key != "dangling" {
		t.Fatalf("unexpected trailing key: %s", fields[2].Key)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) got=%v want=%v", raw, got, want)
		}
	}
}

func TestNewJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(&buf, LevelWarn)

	logger.Info("dropped below level")
	logger.Warn("refresh slow", "sport_id", 7)
	_ = logger.Sync()

	out := buf.String()
	if strings.Contains(out, "dropped below level") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, `"msg":"refresh slow"`) || !strings.Contains(out, `"sport_id":7`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestLoggerContextAddsTraceIDs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a},
		SpanID:     trace.SpanID{0x0b},
		TraceFlags: trace.FlagsSampled,
	})
	logger.WarnContext(trace.ContextWithSpanContext(context.Background(), sc), "upstream slow")
	logger.Warn("plain")

	entries := logs.All()
	if got := entries[0].ContextMap()["trace_id"]; got != sc.TraceID().String() {
		t.Fatalf("expected trace_id field, got %#v", got)
	}
	if _, ok := entries[1].ContextMap()["trace_id"]; ok {
		t.Fatalf("plain call must not carry trace ids")
	}
}

func TestNilLoggerUsesDefault(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetDefault(FromZap(zap.New(core)))
	defer SetDefault(nil)

	var logger *Logger
	logger.Info("from nil receiver")
	logger.With("sport_id", 7).Info("scoped")

	if logs.Len() != 2 {
		t.Fatalf("expected records on the default logger, got %d", logs.Len())
	}
}
