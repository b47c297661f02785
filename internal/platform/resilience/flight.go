package resilience

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Flight deduplicates concurrent calls by key. The shared call runs on a context detached
// from the caller that started it and bounded by timeout, so a caller going away only
// stops its own wait.
type Flight struct {
	group   singleflight.Group
	timeout time.Duration
}

// NewFlight returns a Flight whose shared calls end after timeout. Zero means no bound.
func NewFlight(timeout time.Duration) *Flight {
	return &Flight{timeout: max(timeout, 0)}
}

// Share runs fn once for every concurrent caller of key. shared reports whether the
// result went to more than one caller.
func Share[T any](ctx context.Context, f *Flight, key string, fn func(ctx context.Context) (T, error)) (value T, shared bool, err error) {
	results := f.group.DoChan(key, func() (any, error) {
		runCtx := context.WithoutCancel(ctx)
		if f.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, f.timeout)
			defer cancel()
		}
		return fn(runCtx)
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return value, res.Shared, res.Err
		}
		value, _ = res.Val.(T)
		return value, res.Shared, nil
	case <-ctx.Done():
		return value, false, ctx.Err()
	}
}
