package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/riskibarqy/prizepicks-feed/internal/config"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
)

func TestStartTelemetry_AllDisabled(t *testing.T) {
	cases := []config.Config{
		{ServiceName: "prizepicks-feed-api", AppEnv: config.EnvDev},
		{UptraceEnabled: true, UptraceDSN: "  ", ServiceName: "prizepicks-feed-api", AppEnv: config.EnvDev},
	}

	for _, cfg := range cases {
		tel, err := StartTelemetry(context.Background(), cfg, logging.NewNop())
		if err != nil {
			t.Fatalf("start telemetry: %v", err)
		}
		if got := tel.Running(); len(got) != 0 {
			t.Fatalf("expected no running backends, got %v", got)
		}
		if err := tel.Shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	}
}

func TestStartTelemetry_PprofSharesAPIAddress(t *testing.T) {
	_, err := StartTelemetry(context.Background(), config.Config{
		PprofEnabled: true,
		PprofAddr:    ":8080",
		HTTPAddr:     ":8080",
	}, logging.NewNop())
	if err == nil {
		t.Fatal("expected error when pprof shares the API address")
	}
}

func TestStartTelemetry_PprofLifecycle(t *testing.T) {
	tel, err := StartTelemetry(context.Background(), config.Config{
		PprofEnabled: true,
		PprofAddr:    "127.0.0.1:0",
		HTTPAddr:     ":8080",
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("start telemetry: %v", err)
	}
	if got := tel.Running(); len(got) != 1 || got[0] != "pprof" {
		t.Fatalf("unexpected running backends: %v", got)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestPprofMuxServesIndex(t *testing.T) {
	rec := httptest.NewRecorder()
	newPprofMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected pprof index, got %d", rec.Code)
	}
}

func TestTelemetryShutdown_ReverseOrder(t *testing.T) {
	var order []string
	tel := &Telemetry{logger: logging.NewNop()}
	for _, name := range []string{"uptrace", "pyroscope", "pprof"} {
		tel.running = append(tel.running, backend{name: name, stop: func(context.Context) error {
			order = append(order, name)
			return nil
		}})
	}

	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(order) != 3 || order[0] != "pprof" || order[2] != "uptrace" {
		t.Fatalf("unexpected stop order: %v", order)
	}
}
