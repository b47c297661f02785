package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/riskibarqy/prizepicks-feed/internal/config"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
)

type stopFunc func(ctx context.Context) error

type backend struct {
	name string
	stop stopFunc
}

// Telemetry owns the optional tracing, profiling and pprof backends of a process.
type Telemetry struct {
	logger  *logging.Logger
	running []backend
}

// StartTelemetry brings up Uptrace, Pyroscope and the pprof listener, each only when
// enabled in cfg. If one fails, the ones already running are stopped before returning.
func StartTelemetry(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = logging.Default()
	}
	t := &Telemetry{logger: logger}

	starters := []struct {
		name  string
		start func(config.Config, *logging.Logger) (stopFunc, error)
	}{
		{"uptrace", startUptrace},
		{"pyroscope", startPyroscope},
		{"pprof", startPprof},
	}
	for _, s := range starters {
		stop, err := s.start(cfg, logger)
		if err != nil {
			_ = t.Shutdown(ctx)
			return nil, fmt.Errorf("start %s: %w", s.name, err)
		}
		if stop != nil {
			t.running = append(t.running, backend{name: s.name, stop: stop})
		}
	}
	return t, nil
}

// Running lists the started backends in start order.
func (t *Telemetry) Running() []string {
	names := make([]string, 0, len(t.running))
	for _, b := range t.running {
		names = append(names, b.name)
	}
	return names
}

// Shutdown stops backends in reverse start order and reports every failure.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	for i := len(t.running) - 1; i >= 0; i-- {
		b := t.running[i]
		if err := b.stop(ctx); err != nil {
			t.logger.Warn("telemetry backend stop failed", "backend", b.name, "error", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", b.name, err))
		}
	}
	t.running = nil
	return errors.Join(errs...)
}
