package app

import (
	"context"
	"fmt"

	"github.com/riskibarqy/prizepicks-feed/internal/config"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/game"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/jobscheduler"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/player"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/projection"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/sport"
	cacherepo "github.com/riskibarqy/prizepicks-feed/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/prizepicks-feed/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/prizepicks-feed/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/prizepicks-feed/internal/infrastructure/repository/redisstore"
	"github.com/riskibarqy/prizepicks-feed/internal/interfaces/httpapi"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/cache"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
	"github.com/riskibarqy/prizepicks-feed/internal/usecase"
)

// store groups the repositories selected by STORE_BACKEND and REFRESH_TRACKER.
type store struct {
	sports      sport.Repository
	projections projection.Repository
	players     player.Repository
	games       game.Repository
	dispatches  jobscheduler.Repository
	tracker     usecase.RefreshTracker
	checkers    map[string]httpapi.HealthChecker
	closers     []func() error
}

func openStore(ctx context.Context, cfg config.Config, logger *logging.Logger) (*store, error) {
	s := &store{checkers: make(map[string]httpapi.HealthChecker)}

	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		if err := postgres.BootstrapSeed(ctx, db); err != nil {
			_ = s.close()
			return nil, err
		}
		s.sports = postgres.NewSportRepository(db)
		s.projections = postgres.NewProjectionRepository(db)
		s.players = postgres.NewPlayerRepository(db)
		s.games = postgres.NewGameRepository(db)
		s.dispatches = postgres.NewJobDispatchRepository(db)
		s.checkers["postgres"] = dbHealthChecker{db: db}
		logger.Info("store backend ready", "backend", cfg.StoreBackend, "db", databaseDSN(cfg).Redacted())
	default:
		s.sports = memory.NewSportRepository(memory.SeedSports())
		s.projections = memory.NewProjectionRepository()
		s.players = memory.NewPlayerRepository(nil)
		s.games = memory.NewGameRepository(nil)
		s.dispatches = memory.NewJobDispatchRepository()
		logger.Info("store backend ready", "backend", config.StoreBackendMemory)
	}

	if cfg.CacheEnabled {
		s.sports = cacherepo.NewSportRepository(s.sports, cache.NewStore(cfg.CacheTTL))
		s.games = cacherepo.NewGameRepository(s.games, cache.NewStore(cfg.CacheTTL))
	}

	switch cfg.RefreshTracker {
	case config.RefreshTrackerRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			_ = s.close()
			return nil, fmt.Errorf("open refresh tracker: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		tracker := redisstore.NewRefreshTracker(client, cfg.ServiceName+":")
		s.tracker = tracker
		s.checkers["redis"] = tracker
	default:
		s.tracker = memory.NewRefreshTracker(cache.NewStore(cfg.FeedStalenessTTL))
	}
	logger.Info("refresh tracker ready", "tracker", cfg.RefreshTracker)

	return s, nil
}

// close releases resources in reverse open order.
func (s *store) close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
