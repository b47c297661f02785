package usecase

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/game"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/player"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/projection"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/sport"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/resilience"
)

const (
	defaultSportRefreshTimeout = 10 * time.Minute
	defaultAllRefreshTimeout   = time.Hour
)

type RefreshConfig struct {
	DelayMin time.Duration
	DelayMax time.Duration
	Workers  int
	// SportTimeout bounds one shared sport or catalog refresh. AllTimeout bounds RefreshAll.
	SportTimeout time.Duration
	AllTimeout   time.Duration
}

type CountDelta struct {
	Before     int `json:"before"`
	After      int `json:"after"`
	Difference int `json:"difference"`
}

func newCountDelta(before, after int) CountDelta {
	return CountDelta{Before: before, After: after, Difference: after - before}
}

type RefreshReport struct {
	SportID     int64      `json:"sport_id"`
	Projections CountDelta `json:"projections"`
	Players     CountDelta `json:"players"`
	Games       CountDelta `json:"games"`
	Fetched     int        `json:"fetched"`
	Skipped     int        `json:"skipped"`
	ElapsedMs   int64      `json:"elapsed_ms"`
	RefreshedAt time.Time  `json:"refresh_time"`
}

type RefreshFailure struct {
	SportID int64  `json:"sport_id"`
	Message string `json:"message"`
}

type RefreshAllResult struct {
	SportCount   int              `json:"sport_count"`
	SuccessCount int              `json:"success_count"`
	FailedCount  int              `json:"failed_count"`
	WorkerCount  int              `json:"worker_count"`
	Reports      []RefreshReport  `json:"reports"`
	Failures     []RefreshFailure `json:"failures,omitempty"`
	ElapsedMs    int64            `json:"elapsed_ms"`
}

// RefreshCoordinator pulls fresh data for a sport from the feed and replaces what the
// store holds for it. Concurrent refreshes of the same scope share one execution.
type RefreshCoordinator struct {
	feed           ProjectionFeed
	sportRepo      sport.Repository
	projectionRepo projection.Repository
	playerRepo     player.Repository
	gameRepo       game.Repository
	staleness      *StalenessCache
	cfg            RefreshConfig
	logger         *logging.Logger
	sportFlight    *resilience.Flight
	allFlight      *resilience.Flight

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	delay func() time.Duration
}

func NewRefreshCoordinator(
	feed ProjectionFeed,
	sportRepo sport.Repository,
	projectionRepo projection.Repository,
	playerRepo player.Repository,
	gameRepo game.Repository,
	staleness *StalenessCache,
	cfg RefreshConfig,
	logger *logging.Logger,
) *RefreshCoordinator {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DelayMin < 0 {
		cfg.DelayMin = 0
	}
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMax = cfg.DelayMin
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SportTimeout <= 0 {
		cfg.SportTimeout = defaultSportRefreshTimeout
	}
	if cfg.AllTimeout <= 0 {
		cfg.AllTimeout = defaultAllRefreshTimeout
	}

	c := &RefreshCoordinator{
		feed:           feed,
		sportRepo:      sportRepo,
		projectionRepo: projectionRepo,
		playerRepo:     playerRepo,
		gameRepo:       gameRepo,
		staleness:      staleness,
		cfg:            cfg,
		logger:         logger,
		sportFlight:    resilience.NewFlight(cfg.SportTimeout),
		allFlight:      resilience.NewFlight(cfg.AllTimeout),
		now:            time.Now,
		sleep:          sleepWithContext,
	}
	c.delay = func() time.Duration { return resilience.Jitter(c.cfg.DelayMin, c.cfg.DelayMax) }
	return c
}

// RefreshSport replaces the stored projections of one sport with a fresh upstream fetch.
func (c *RefreshCoordinator) RefreshSport(ctx context.Context, sportID int64) (RefreshReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshCoordinator.RefreshSport", sportAttr(&sportID)...)
	defer span.End()

	if sportID <= 0 {
		return RefreshReport{}, fmt.Errorf("%w: sport id must be greater than zero", ErrInvalidInput)
	}

	report, shared, err := resilience.Share(ctx, c.sportFlight, refreshKeyForSport(sportID), func(ctx context.Context) (RefreshReport, error) {
		return c.refreshSport(ctx, sportID)
	})
	if err != nil {
		return RefreshReport{}, err
	}
	if shared {
		c.logger.DebugContext(ctx, "joined in-flight sport refresh", "sport_id", sportID)
	}
	return report, nil
}

func (c *RefreshCoordinator) refreshSport(ctx context.Context, sportID int64) (RefreshReport, error) {
	start := c.now()
	filter := projection.Filter{SportID: &sportID}

	before, err := c.counts(ctx, filter)
	if err != nil {
		return RefreshReport{}, err
	}

	batch, err := c.feed.FetchProjections(ctx, ProjectionQuery{SportID: sportID})
	if err != nil {
		return RefreshReport{}, fmt.Errorf("refresh sport=%d: %w", sportID, err)
	}

	// a refresh only ever writes the sport it was asked for
	items := make([]projection.Projection, 0, len(batch.Projections))
	for _, item := range batch.Projections {
		if item.SportID != sportID {
			batch.Skipped++
			continue
		}
		items = append(items, item)
	}
	players := slices.DeleteFunc(slices.Clone(batch.Players), func(p player.Player) bool { return p.SportID != sportID })
	games := slices.DeleteFunc(slices.Clone(batch.Games), func(g game.Game) bool { return g.SportID != sportID })

	if err := c.projectionRepo.ReplaceBySport(ctx, sportID, items); err != nil {
		return RefreshReport{}, fmt.Errorf("replace projections sport=%d: %w", sportID, err)
	}
	if err := c.playerRepo.UpsertMany(ctx, players); err != nil {
		return RefreshReport{}, fmt.Errorf("upsert players sport=%d: %w", sportID, err)
	}
	if err := c.gameRepo.UpsertMany(ctx, games); err != nil {
		return RefreshReport{}, fmt.Errorf("upsert games sport=%d: %w", sportID, err)
	}

	if c.staleness != nil {
		if err := c.staleness.MarkRefreshed(ctx, refreshKeyForSport(sportID)); err != nil {
			c.logger.WarnContext(ctx, "record sport refresh marker failed", "sport_id", sportID, "error", err)
		}
		c.staleness.InvalidateSport(ctx, sportID)
	}

	after, err := c.counts(ctx, filter)
	if err != nil {
		return RefreshReport{}, err
	}

	finished := c.now()
	report := RefreshReport{
		SportID:     sportID,
		Projections: newCountDelta(before[0], after[0]),
		Players:     newCountDelta(before[1], after[1]),
		Games:       newCountDelta(before[2], after[2]),
		Fetched:     len(items),
		Skipped:     batch.Skipped,
		ElapsedMs:   finished.Sub(start).Milliseconds(),
		RefreshedAt: finished.UTC(),
	}
	c.logger.InfoContext(ctx, "sport refreshed",
		"sport_id", sportID,
		"projections", report.Projections.After,
		"players", report.Players.After,
		"games", report.Games.After,
		"skipped", report.Skipped,
		"elapsed_ms", report.ElapsedMs,
	)
	return report, nil
}

func (c *RefreshCoordinator) counts(ctx context.Context, filter projection.Filter) ([3]int, error) {
	var out [3]int
	var err error
	if out[0], err = c.projectionRepo.Count(ctx, filter); err != nil {
		return out, fmt.Errorf("count projections: %w", err)
	}
	if out[1], err = c.playerRepo.Count(ctx, filter.SportID); err != nil {
		return out, fmt.Errorf("count players: %w", err)
	}
	if out[2], err = c.gameRepo.Count(ctx, filter.SportID); err != nil {
		return out, fmt.Errorf("count games: %w", err)
	}
	return out, nil
}

// RefreshSports reloads the sport catalog from the feed.
func (c *RefreshCoordinator) RefreshSports(ctx context.Context) ([]sport.Sport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshCoordinator.RefreshSports")
	defer span.End()

	items, _, err := resilience.Share(ctx, c.sportFlight, refreshKeySports, func(ctx context.Context) ([]sport.Sport, error) {
		items, err := c.feed.FetchSports(ctx)
		if err != nil {
			return nil, fmt.Errorf("refresh sports: %w", err)
		}
		if err := c.sportRepo.UpsertMany(ctx, items); err != nil {
			return nil, fmt.Errorf("upsert sports: %w", err)
		}
		if c.staleness != nil {
			if err := c.staleness.MarkRefreshed(ctx, refreshKeySports); err != nil {
				c.logger.WarnContext(ctx, "record sports refresh marker failed", "error", err)
			}
			c.staleness.InvalidateSports(ctx)
		}
		c.logger.InfoContext(ctx, "sport catalog refreshed", "sports", len(items))
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// RefreshAll refreshes every active sport with a randomized pause between sports. One
// sport failing does not stop the others.
func (c *RefreshCoordinator) RefreshAll(ctx context.Context) (RefreshAllResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshCoordinator.RefreshAll")
	defer span.End()

	result, _, err := resilience.Share(ctx, c.allFlight, refreshKeyAll, c.refreshAll)
	if err != nil {
		return RefreshAllResult{}, err
	}
	return result, nil
}

func (c *RefreshCoordinator) refreshAll(ctx context.Context) (RefreshAllResult, error) {
	start := c.now()

	sports, err := c.activeSports(ctx)
	if err != nil {
		return RefreshAllResult{}, err
	}

	workerCount := min(c.cfg.Workers, max(len(sports), 1))
	result := RefreshAllResult{
		SportCount:  len(sports),
		WorkerCount: workerCount,
		Reports:     make([]RefreshReport, 0, len(sports)),
	}
	if len(sports) == 0 {
		return result, nil
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return RefreshAllResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	type outcome struct {
		report  RefreshReport
		failure *RefreshFailure
	}
	results := make(chan outcome, len(sports))

	var successCount atomic.Int32
	var failedCount atomic.Int32
	var workers sync.WaitGroup
	// Pauses are taken one at a time under pace, so sport starts stay spaced apart
	// however many workers run.
	var (
		pace    sync.Mutex
		started bool
	)
	waitTurn := func() error {
		pace.Lock()
		defer pace.Unlock()
		if !started {
			started = true
			return nil
		}
		return c.sleep(ctx, c.delay())
	}

	for _, item := range sports {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			if err := waitTurn(); err != nil {
				failedCount.Add(1)
				results <- outcome{failure: &RefreshFailure{SportID: item.ID, Message: err.Error()}}
				return
			}

			report, err := c.RefreshSport(ctx, item.ID)
			if err != nil {
				c.logger.WarnContext(ctx, "refresh sport failed", "sport_id", item.ID, "error", err)
				failedCount.Add(1)
				results <- outcome{failure: &RefreshFailure{SportID: item.ID, Message: err.Error()}}
				return
			}
			successCount.Add(1)
			results <- outcome{report: report}
		}); err != nil {
			workers.Done()
			return RefreshAllResult{}, fmt.Errorf("submit refresh task to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	for row := range results {
		if row.failure != nil {
			result.Failures = append(result.Failures, *row.failure)
			continue
		}
		result.Reports = append(result.Reports, row.report)
	}
	sort.SliceStable(result.Reports, func(i, j int) bool {
		return result.Reports[i].SportID < result.Reports[j].SportID
	})
	sort.SliceStable(result.Failures, func(i, j int) bool {
		return result.Failures[i].SportID < result.Failures[j].SportID
	})

	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())
	result.ElapsedMs = c.now().Sub(start).Milliseconds()

	if result.SuccessCount > 0 && c.staleness != nil {
		if err := c.staleness.MarkRefreshed(ctx, refreshKeyAll); err != nil {
			c.logger.WarnContext(ctx, "record full refresh marker failed", "error", err)
		}
	}
	c.logger.InfoContext(ctx, "refresh all sports finished",
		"sports", result.SportCount,
		"succeeded", result.SuccessCount,
		"failed", result.FailedCount,
		"elapsed_ms", result.ElapsedMs,
	)
	return result, nil
}

func (c *RefreshCoordinator) activeSports(ctx context.Context) ([]sport.Sport, error) {
	var items []sport.Sport
	if c.staleness == nil || c.staleness.IsStale(ctx, refreshKeySports) {
		refreshed, err := c.RefreshSports(ctx)
		if err != nil {
			c.logger.WarnContext(ctx, "refresh sport catalog failed, using stored catalog", "error", err)
		} else {
			items = refreshed
		}
	}
	if items == nil {
		stored, err := c.sportRepo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list sports: %w", err)
		}
		items = stored
	}

	out := make([]sport.Sport, 0, len(items))
	for _, item := range items {
		if item.Active {
			out = append(out, item)
		}
	}
	return out, nil
}

// EnsureFresh refreshes the scope synchronously when its marker is stale. A failed refresh
// is logged and the stored data keeps being served.
func (c *RefreshCoordinator) EnsureFresh(ctx context.Context, sportID *int64) {
	if c.staleness == nil {
		return
	}

	if sportID == nil {
		if !c.staleness.IsStale(ctx, refreshKeyAll) {
			return
		}
		if _, err := c.RefreshAll(ctx); err != nil {
			c.logger.WarnContext(ctx, "stale read refresh failed, serving stored data", "scope", scopeAll, "error", err)
		}
		return
	}

	if !c.staleness.IsStale(ctx, refreshKeyForSport(*sportID)) {
		return
	}
	if _, err := c.RefreshSport(ctx, *sportID); err != nil {
		c.logger.WarnContext(ctx, "stale read refresh failed, serving stored data", "scope", strconv.FormatInt(*sportID, 10), "error", err)
	}
}

// EnsureSportsFresh refreshes the sport catalog when it is stale.
func (c *RefreshCoordinator) EnsureSportsFresh(ctx context.Context) {
	if c.staleness == nil || !c.staleness.IsStale(ctx, refreshKeySports) {
		return
	}
	if _, err := c.RefreshSports(ctx); err != nil {
		c.logger.WarnContext(ctx, "stale sport catalog refresh failed, serving stored data", "error", err)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
