package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/game"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/player"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/projection"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/sport"
	"github.com/riskibarqy/prizepicks-feed/internal/infrastructure/repository/memory"
	gamemock "github.com/riskibarqy/prizepicks-feed/internal/mocks/domain/game"
	playermock "github.com/riskibarqy/prizepicks-feed/internal/mocks/domain/player"
	projectionmock "github.com/riskibarqy/prizepicks-feed/internal/mocks/domain/projection"
	sportmock "github.com/riskibarqy/prizepicks-feed/internal/mocks/domain/sport"
	"github.com/stretchr/testify/mock"
)

type stubFeed struct {
	mu         sync.Mutex
	sports     []sport.Sport
	sportsErr  error
	batches    map[int64]FeedBatch
	errs       map[int64]error
	gate       chan struct{}
	sportCalls atomic.Int32
	fetchCalls map[int64]int
	queries    []ProjectionQuery
}

func newStubFeed() *stubFeed {
	return &stubFeed{
		batches:    make(map[int64]FeedBatch),
		errs:       make(map[int64]error),
		fetchCalls: make(map[int64]int),
	}
}

func (f *stubFeed) FetchSports(context.Context) ([]sport.Sport, error) {
	f.sportCalls.Add(1)
	if f.sportsErr != nil {
		return nil, f.sportsErr
	}
	return append([]sport.Sport(nil), f.sports...), nil
}

func (f *stubFeed) FetchProjections(ctx context.Context, query ProjectionQuery) (FeedBatch, error) {
	f.mu.Lock()
	f.fetchCalls[query.SportID]++
	f.queries = append(f.queries, query)
	gate := f.gate
	batch, err := f.batches[query.SportID], f.errs[query.SportID]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return FeedBatch{}, ctx.Err()
		}
	}
	return batch, err
}

func (f *stubFeed) calls(sportID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls[sportID]
}

func nbaBatch() FeedBatch {
	return FeedBatch{
		Projections: []projection.Projection{
			{ID: "1001", PlayerID: "p1", PlayerName: "LeBron James", SportID: 7, SportName: "NBA", GameID: "g1", StatType: "Points", LineScore: 27.5, IsActive: true},
			{ID: "1002", PlayerID: "p1", PlayerName: "LeBron James", SportID: 7, SportName: "NBA", GameID: "g1", StatType: "Rebounds", LineScore: 8.5, IsActive: true},
			{ID: "1003", PlayerID: "p2", PlayerName: "Stephen Curry", SportID: 7, SportName: "NBA", GameID: "g1", StatType: "Points", LineScore: 24},
		},
		Players: []player.Player{
			{ID: "p1", Name: "LeBron James", SportID: 7, SportName: "NBA"},
			{ID: "p2", Name: "Stephen Curry", SportID: 7, SportName: "NBA"},
		},
		Games: []game.Game{
			{ID: "g1", SportID: 7, SportName: "NBA", HomeTeam: game.UnknownTeam, AwayTeam: "GSW", PlayerIDs: []string{"p1", "p2"}},
		},
	}
}

type memoryStores struct {
	sports      *memory.SportRepository
	projections *memory.ProjectionRepository
	players     *memory.PlayerRepository
	games       *memory.GameRepository
}

func newMemoryStores(sports ...sport.Sport) memoryStores {
	return memoryStores{
		sports:      memory.NewSportRepository(sports),
		projections: memory.NewProjectionRepository(),
		players:     memory.NewPlayerRepository(nil),
		games:       memory.NewGameRepository(nil),
	}
}

func newTestCoordinator(feed ProjectionFeed, stores memoryStores, tracker RefreshTracker) (*RefreshCoordinator, *StalenessCache) {
	staleness := NewStalenessCache(tracker, nil, StalenessConfig{TTL: 15 * time.Minute}, nil)
	coordinator := NewRefreshCoordinator(feed, stores.sports, stores.projections, stores.players, stores.games, staleness, RefreshConfig{Workers: 1}, nil)
	coordinator.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return coordinator, staleness
}

func TestRefreshCoordinator_RefreshSport_UsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sportRepo := sportmock.NewRepository(t)
	projectionRepo := projectionmock.NewRepository(t)
	playerRepo := playermock.NewRepository(t)
	gameRepo := gamemock.NewRepository(t)

	feed := newStubFeed()
	batch := nbaBatch()
	batch.Projections = append(batch.Projections, projection.Projection{ID: "x", PlayerID: "p9", SportID: 2, StatType: "Pass Yards"})
	feed.batches[7] = batch

	sportID := int64(7)
	filter := projection.Filter{SportID: &sportID}
	projectionRepo.On("Count", mock.Anything, filter).Return(5, nil).Once()
	playerRepo.On("Count", mock.Anything, &sportID).Return(1, nil).Once()
	gameRepo.On("Count", mock.Anything, &sportID).Return(0, nil).Once()
	projectionRepo.
		On("ReplaceBySport", mock.Anything, sportID, mock.MatchedBy(func(items []projection.Projection) bool {
			return len(items) == 3
		})).
		Return(nil).
		Once()
	playerRepo.On("UpsertMany", mock.Anything, batch.Players).Return(nil).Once()
	gameRepo.On("UpsertMany", mock.Anything, batch.Games).Return(nil).Once()
	projectionRepo.On("Count", mock.Anything, filter).Return(3, nil).Once()
	playerRepo.On("Count", mock.Anything, &sportID).Return(2, nil).Once()
	gameRepo.On("Count", mock.Anything, &sportID).Return(1, nil).Once()

	tracker := newFakeTracker()
	staleness := NewStalenessCache(tracker, nil, StalenessConfig{}, nil)
	coordinator := NewRefreshCoordinator(feed, sportRepo, projectionRepo, playerRepo, gameRepo, staleness, RefreshConfig{}, nil)

	report, err := coordinator.RefreshSport(ctx, sportID)
	if err != nil {
		t.Fatalf("refresh sport: %v", err)
	}
	if report.Projections != (CountDelta{Before: 5, After: 3, Difference: -2}) {
		t.Fatalf("unexpected projection delta: %+v", report.Projections)
	}
	if report.Players.Difference != 1 || report.Games.Difference != 1 {
		t.Fatalf("unexpected player/game delta: %+v %+v", report.Players, report.Games)
	}
	if report.Fetched != 3 || report.Skipped != 1 {
		t.Fatalf("unexpected fetched/skipped: %d/%d", report.Fetched, report.Skipped)
	}
	if !tracker.has("refresh:sport:7") {
		t.Fatalf("expected sport refresh marker")
	}
}

func TestRefreshCoordinator_RefreshSport_FeedFailureKeepsStoredData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	stores := newMemoryStores(sport.Sport{ID: 7, Name: "NBA", Active: true})
	feed := newStubFeed()
	feed.batches[7] = nbaBatch()
	tracker := newFakeTracker()
	coordinator, _ := newTestCoordinator(feed, stores, tracker)

	if _, err := coordinator.RefreshSport(ctx, 7); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	upstreamErr := &UpstreamError{Kind: ErrRateLimited, StatusCode: 429, Attempts: 6}
	feed.mu.Lock()
	feed.errs[7] = upstreamErr
	feed.mu.Unlock()
	tracker.mu.Lock()
	delete(tracker.markers, "refresh:sport:7")
	tracker.mu.Unlock()

	_, err := coordinator.RefreshSport(ctx, 7)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}

	count, _ := stores.projections.Count(ctx, projection.Filter{})
	if count != 3 {
		t.Fatalf("expected previous projections to survive a failed refresh, got=%d", count)
	}
	if tracker.has("refresh:sport:7") {
		t.Fatalf("failed refresh must not mark the sport fresh")
	}
}

func TestRefreshCoordinator_RefreshSport_InvalidID(t *testing.T) {
	t.Parallel()

	coordinator, _ := newTestCoordinator(newStubFeed(), newMemoryStores(), newFakeTracker())
	if _, err := coordinator.RefreshSport(context.Background(), 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRefreshCoordinator_RefreshSport_ConcurrentCallsShareOneFetch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	feed := newStubFeed()
	feed.batches[7] = nbaBatch()
	feed.gate = make(chan struct{})
	coordinator, _ := newTestCoordinator(feed, newMemoryStores(), newFakeTracker())

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coordinator.RefreshSport(ctx, 7)
			errs <- err
		}()
	}

	deadline := time.After(2 * time.Second)
	for feed.calls(7) == 0 {
		select {
		case <-deadline:
			t.Fatalf("refresh never reached the feed")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	time.Sleep(20 * time.Millisecond)
	close(feed.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("refresh error: %v", err)
		}
	}
	if got := feed.calls(7); got != 1 {
		t.Fatalf("expected one upstream fetch, got=%d", got)
	}
}

func TestRefreshCoordinator_RefreshAll_ContinuesPastFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	feed := newStubFeed()
	feed.sports = []sport.Sport{
		{ID: 2, Name: "NFL", Active: true},
		{ID: 7, Name: "NBA", Active: true},
		{ID: 19, Name: "WNBA", Active: false},
	}
	feed.batches[7] = nbaBatch()
	feed.errs[2] = &UpstreamError{Kind: ErrBlocked, StatusCode: 403, Attempts: 4}

	stores := newMemoryStores()
	tracker := newFakeTracker()
	coordinator, _ := newTestCoordinator(feed, stores, tracker)

	var delays atomic.Int32
	coordinator.delay = func() time.Duration {
		delays.Add(1)
		return 2 * time.Second
	}

	result, err := coordinator.RefreshAll(ctx)
	if err != nil {
		t.Fatalf("refresh all: %v", err)
	}
	if result.SportCount != 2 || result.SuccessCount != 1 || result.FailedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Failures) != 1 || result.Failures[0].SportID != 2 {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}
	if len(result.Reports) != 1 || result.Reports[0].SportID != 7 || result.Reports[0].Projections.After != 3 {
		t.Fatalf("unexpected reports: %+v", result.Reports)
	}
	if feed.calls(19) != 0 {
		t.Fatalf("inactive sport must not be refreshed")
	}
	if delays.Load() != 1 {
		t.Fatalf("expected one pause between two sports, got=%d", delays.Load())
	}
	if !tracker.has(refreshKeyAll) || !tracker.has(refreshKeySports) {
		t.Fatalf("expected full and catalog refresh markers")
	}

	stored, _ := stores.sports.List(ctx)
	if len(stored) != 3 {
		t.Fatalf("expected sport catalog to be stored, got=%d", len(stored))
	}
}

func TestRefreshCoordinator_RefreshAll_FallsBackToStoredCatalog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	feed := newStubFeed()
	feed.sportsErr = errors.New("sports endpoint down")
	feed.batches[7] = nbaBatch()

	stores := newMemoryStores(sport.Sport{ID: 7, Name: "NBA", Active: true})
	coordinator, _ := newTestCoordinator(feed, stores, newFakeTracker())

	result, err := coordinator.RefreshAll(ctx)
	if err != nil {
		t.Fatalf("refresh all: %v", err)
	}
	if result.SportCount != 1 || result.SuccessCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRefreshCoordinator_EnsureFresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	feed := newStubFeed()
	feed.batches[7] = nbaBatch()
	coordinator, _ := newTestCoordinator(feed, newMemoryStores(), newFakeTracker())

	sportID := int64(7)
	coordinator.EnsureFresh(ctx, &sportID)
	coordinator.EnsureFresh(ctx, &sportID)
	if got := feed.calls(7); got != 1 {
		t.Fatalf("expected one refresh while fresh, got=%d", got)
	}

	now := time.Now().Add(16 * time.Minute)
	coordinator.staleness.now = func() time.Time { return now }
	coordinator.EnsureFresh(ctx, &sportID)
	if got := feed.calls(7); got != 2 {
		t.Fatalf("expected refresh after ttl, got=%d", got)
	}
}

func TestRefreshCoordinator_RefreshSport_IgnoresForeignSportEntities(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	batch := nbaBatch()
	batch.Projections = append(batch.Projections, projection.Projection{ID: "9001", PlayerID: "w1", PlayerName: "A'ja Wilson", SportID: 19, GameID: "wg1", StatType: "Points", LineScore: 22.5})
	batch.Players = append(batch.Players, player.Player{ID: "w1", Name: "A'ja Wilson", SportID: 19})
	batch.Games = append(batch.Games, game.Game{ID: "wg1", SportID: 19, HomeTeam: game.UnknownTeam, AwayTeam: "SEA", PlayerIDs: []string{"w1"}})

	feed := newStubFeed()
	feed.batches[7] = batch
	stores := newMemoryStores()
	coordinator, _ := newTestCoordinator(feed, stores, newFakeTracker())

	report, err := coordinator.RefreshSport(ctx, 7)
	if err != nil {
		t.Fatalf("refresh sport: %v", err)
	}
	if report.Skipped != 1 || report.Projections.After != 3 || report.Players.After != 2 || report.Games.After != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	wnba := int64(19)
	if n, _ := stores.players.Count(ctx, &wnba); n != 0 {
		t.Fatalf("expected no players written for sport 19, got %d", n)
	}
	if n, _ := stores.games.Count(ctx, &wnba); n != 0 {
		t.Fatalf("expected no games written for sport 19, got %d", n)
	}
}

func TestRefreshCoordinator_RefreshSport_CancelledReaderDoesNotFailJoinedCaller(t *testing.T) {
	t.Parallel()

	feed := newStubFeed()
	feed.batches[7] = nbaBatch()
	feed.gate = make(chan struct{})
	coordinator, _ := newTestCoordinator(feed, newMemoryStores(), newFakeTracker())

	readerCtx, cancelReader := context.WithCancel(context.Background())
	readerErr := make(chan error, 1)
	go func() {
		_, err := coordinator.RefreshSport(readerCtx, 7)
		readerErr <- err
	}()

	deadline := time.After(2 * time.Second)
	for feed.calls(7) == 0 {
		select {
		case <-deadline:
			t.Fatalf("refresh never reached the feed")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	schedulerErr := make(chan error, 1)
	go func() {
		_, err := coordinator.RefreshSport(context.Background(), 7)
		schedulerErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelReader()
	if err := <-readerErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the reader to see its own cancellation, got %v", err)
	}

	close(feed.gate)
	if err := <-schedulerErr; err != nil {
		t.Fatalf("joined caller failed: %v", err)
	}
	if got := feed.calls(7); got != 1 {
		t.Fatalf("expected one upstream fetch, got=%d", got)
	}
}

func TestRefreshCoordinator_RefreshAll_PausesDoNotOverlap(t *testing.T) {
	t.Parallel()

	feed := newStubFeed()
	feed.sports = []sport.Sport{
		{ID: 2, Name: "NFL", Active: true},
		{ID: 7, Name: "NBA", Active: true},
		{ID: 9, Name: "Soccer", Active: true},
	}
	feed.batches[7] = nbaBatch()

	stores := newMemoryStores()
	staleness := NewStalenessCache(newFakeTracker(), nil, StalenessConfig{TTL: 15 * time.Minute}, nil)
	coordinator := NewRefreshCoordinator(feed, stores.sports, stores.projections, stores.players, stores.games, staleness, RefreshConfig{Workers: 3}, nil)

	var active, pauses atomic.Int32
	var overlapped atomic.Bool
	coordinator.sleep = func(ctx context.Context, _ time.Duration) error {
		pauses.Add(1)
		if active.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		return ctx.Err()
	}

	result, err := coordinator.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("refresh all: %v", err)
	}
	if result.SportCount != 3 || result.WorkerCount != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if pauses.Load() != 2 {
		t.Fatalf("expected a pause before every sport but the first, got %d", pauses.Load())
	}
	if overlapped.Load() {
		t.Fatal("pauses between sports ran concurrently")
	}
}
