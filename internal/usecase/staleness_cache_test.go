package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/projection"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/cache"
)

type fakeTracker struct {
	mu      sync.Mutex
	markers map[string]time.Time
	readErr error
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{markers: make(map[string]time.Time)}
}

func (f *fakeTracker) MarkRefreshed(_ context.Context, key string, at time.Time, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markers[key] = at
	return nil
}

func (f *fakeTracker) LastRefreshed(_ context.Context, key string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return time.Time{}, false, f.readErr
	}
	at, ok := f.markers[key]
	return at, ok, nil
}

func (f *fakeTracker) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.markers[key]
	return ok
}

func TestStalenessCache_IsStale(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker := newFakeTracker()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	staleness := NewStalenessCache(tracker, nil, StalenessConfig{TTL: 15 * time.Minute}, nil)
	staleness.now = func() time.Time { return now }

	key := refreshKeyForSport(7)
	if !staleness.IsStale(ctx, key) {
		t.Fatalf("expected missing marker to be stale")
	}
	if err := staleness.MarkRefreshed(ctx, key); err != nil {
		t.Fatalf("mark refreshed: %v", err)
	}
	if staleness.IsStale(ctx, key) {
		t.Fatalf("expected fresh marker")
	}

	now = now.Add(14*time.Minute + 59*time.Second)
	if staleness.IsStale(ctx, key) {
		t.Fatalf("expected marker to be fresh just before ttl")
	}
	now = now.Add(time.Second)
	if !staleness.IsStale(ctx, key) {
		t.Fatalf("expected marker to be stale at ttl")
	}
}

func TestStalenessCache_TrackerErrorCountsAsStale(t *testing.T) {
	t.Parallel()

	tracker := newFakeTracker()
	tracker.readErr = errors.New("redis down")
	staleness := NewStalenessCache(tracker, nil, StalenessConfig{}, nil)

	if !staleness.IsStale(context.Background(), refreshKeyAll) {
		t.Fatalf("expected tracker failure to count as stale")
	}
	if staleness.TTL() != DefaultStalenessTTL {
		t.Fatalf("unexpected default ttl: %s", staleness.TTL())
	}
}

func TestStalenessCache_InvalidateSportDropsDerivedResults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	results := cache.NewStore(time.Hour)
	staleness := NewStalenessCache(newFakeTracker(), results, StalenessConfig{}, nil)

	nba := int64(7)
	other := int64(70)
	keep := []string{
		projectionsCacheKey(projection.Filter{SportID: &other}),
		playersCacheKey(&other),
		summaryCacheKey(70),
	}
	drop := []string{
		projectionsCacheKey(projection.Filter{SportID: &nba}),
		projectionsCacheKey(projection.Filter{SportID: &nba, PlayerName: "James", StatType: "Points"}),
		projectionsCacheKey(projection.Filter{}),
		playersCacheKey(&nba),
		playersCacheKey(nil),
		gamesCacheKey(&nba),
		gamesCacheKey(nil),
		summaryCacheKey(7),
	}
	for _, key := range append(append([]string{}, keep...), drop...) {
		results.Set(ctx, key, "cached")
	}

	staleness.InvalidateSport(ctx, 7)

	for _, key := range drop {
		if _, ok := results.Get(ctx, key); ok {
			t.Fatalf("expected %s to be invalidated", key)
		}
	}
	for _, key := range keep {
		if _, ok := results.Get(ctx, key); !ok {
			t.Fatalf("expected %s to survive", key)
		}
	}
}

func TestStalenessCache_RememberLoadsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	staleness := NewStalenessCache(nil, nil, StalenessConfig{}, nil)

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return []string{"a"}, nil
	}
	for i := 0; i < 3; i++ {
		if _, err := staleness.Remember(ctx, cacheKeySportList, loader); err != nil {
			t.Fatalf("remember: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one load, got=%d", calls)
	}

	staleness.InvalidateSports(ctx)
	if _, err := staleness.Remember(ctx, cacheKeySportList, loader); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected reload after invalidation, got=%d", calls)
	}
}

func TestProjectionsCacheKey(t *testing.T) {
	t.Parallel()

	nba := int64(7)
	if got := projectionsCacheKey(projection.Filter{SportID: &nba, PlayerName: " LeBron ", StatType: "Points"}); got != "projections:7:lebron:points" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := projectionsCacheKey(projection.Filter{}); got != "projections:all::" {
		t.Fatalf("unexpected key: %s", got)
	}
}
