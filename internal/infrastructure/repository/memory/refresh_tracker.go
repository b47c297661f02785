package memory

import (
	"context"
	"time"

	"github.com/riskibarqy/prizepicks-feed/internal/platform/cache"
)

// RefreshTracker stores refresh markers in the process cache. A marker disappears once
// its TTL elapses.
type RefreshTracker struct {
	store *cache.Store
}

func NewRefreshTracker(store *cache.Store) *RefreshTracker {
	if store == nil {
		store = cache.NewStore(0)
	}
	return &RefreshTracker{store: store}
}

func (t *RefreshTracker) MarkRefreshed(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	t.store.SetWithTTL(ctx, key, at.UTC(), ttl)
	return nil
}

func (t *RefreshTracker) LastRefreshed(ctx context.Context, key string) (time.Time, bool, error) {
	v, ok := t.store.Get(ctx, key)
	if !ok {
		return time.Time{}, false, nil
	}
	at, ok := v.(time.Time)
	if !ok {
		return time.Time{}, false, nil
	}
	return at, true, nil
}
