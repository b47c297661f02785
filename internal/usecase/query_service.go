package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/game"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/player"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/projection"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/sport"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

const summaryPreviewSize = 10

type SportSummary struct {
	Sport            sport.Sport             `json:"sport"`
	ProjectionsCount int                     `json:"projections_count"`
	PlayersCount     int                     `json:"players_count"`
	GamesCount       int                     `json:"games_count"`
	Projections      []projection.Projection `json:"projections"`
	Players          []player.Player         `json:"players"`
	Games            []game.Game             `json:"games"`
}

// QueryService answers read requests from the store, refreshing stale scopes first.
type QueryService struct {
	sportRepo      sport.Repository
	projectionRepo projection.Repository
	playerRepo     player.Repository
	gameRepo       game.Repository
	refresher      *RefreshCoordinator
	staleness      *StalenessCache
	logger         *logging.Logger
}

func NewQueryService(
	sportRepo sport.Repository,
	projectionRepo projection.Repository,
	playerRepo player.Repository,
	gameRepo game.Repository,
	refresher *RefreshCoordinator,
	staleness *StalenessCache,
	logger *logging.Logger,
) *QueryService {
	if logger == nil {
		logger = logging.Default()
	}
	if staleness == nil {
		staleness = NewStalenessCache(nil, nil, StalenessConfig{}, logger)
	}
	return &QueryService{
		sportRepo:      sportRepo,
		projectionRepo: projectionRepo,
		playerRepo:     playerRepo,
		gameRepo:       gameRepo,
		refresher:      refresher,
		staleness:      staleness,
		logger:         logger,
	}
}

func (s *QueryService) ListSports(ctx context.Context) ([]sport.Sport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.ListSports")
	defer span.End()

	if s.refresher != nil {
		s.refresher.EnsureSportsFresh(ctx)
	}

	out, err := s.staleness.Remember(ctx, cacheKeySportList, func(ctx context.Context) (any, error) {
		items, err := s.sportRepo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list sports: %w", err)
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]sport.Sport), nil
}

func (s *QueryService) GetSportSummary(ctx context.Context, sportID int64) (SportSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.GetSportSummary")
	defer span.End()

	if sportID <= 0 {
		return SportSummary{}, fmt.Errorf("%w: sport id must be greater than zero", ErrInvalidInput)
	}

	if s.refresher != nil {
		s.refresher.EnsureSportsFresh(ctx)
	}
	item, exists, err := s.sportRepo.GetByID(ctx, sportID)
	if err != nil {
		return SportSummary{}, fmt.Errorf("get sport: %w", err)
	}
	if !exists {
		return SportSummary{}, fmt.Errorf("%w: sport=%d", ErrNotFound, sportID)
	}

	if s.refresher != nil {
		s.refresher.EnsureFresh(ctx, &sportID)
	}

	out, err := s.staleness.Remember(ctx, summaryCacheKey(sportID), func(ctx context.Context) (any, error) {
		return s.buildSummary(ctx, item)
	})
	if err != nil {
		return SportSummary{}, err
	}
	return out.(SportSummary), nil
}

func (s *QueryService) buildSummary(ctx context.Context, item sport.Sport) (SportSummary, error) {
	sportID := item.ID
	summary := SportSummary{Sport: item}

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		items, err := s.projectionRepo.List(ctx, projection.Filter{SportID: &sportID})
		if err != nil {
			return fmt.Errorf("list projections: %w", err)
		}
		summary.ProjectionsCount = len(items)
		summary.Projections = items[:min(len(items), summaryPreviewSize)]
		return nil
	})
	p.Go(func(ctx context.Context) error {
		items, err := s.playerRepo.List(ctx, &sportID)
		if err != nil {
			return fmt.Errorf("list players: %w", err)
		}
		summary.PlayersCount = len(items)
		summary.Players = items[:min(len(items), summaryPreviewSize)]
		return nil
	})
	p.Go(func(ctx context.Context) error {
		items, err := s.gameRepo.List(ctx, &sportID)
		if err != nil {
			return fmt.Errorf("list games: %w", err)
		}
		summary.GamesCount = len(items)
		summary.Games = items[:min(len(items), summaryPreviewSize)]
		return nil
	})
	if err := p.Wait(); err != nil {
		return SportSummary{}, err
	}
	return summary, nil
}

func (s *QueryService) ListProjections(ctx context.Context, filter projection.Filter, page *PageRequest) (Page[projection.Projection], error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.ListProjections", sportAttr(filter.SportID)...)
	defer span.End()

	if filter.SportID != nil && *filter.SportID <= 0 {
		return Page[projection.Projection]{}, fmt.Errorf("%w: sport id must be greater than zero", ErrInvalidInput)
	}
	filter.PlayerName = strings.TrimSpace(filter.PlayerName)
	filter.StatType = strings.TrimSpace(filter.StatType)

	if s.refresher != nil {
		s.refresher.EnsureFresh(ctx, filter.SportID)
	}

	out, err := s.staleness.Remember(ctx, projectionsCacheKey(filter), func(ctx context.Context) (any, error) {
		items, err := s.projectionRepo.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list projections: %w", err)
		}
		return items, nil
	})
	if err != nil {
		return Page[projection.Projection]{}, err
	}
	return Paginate(out.([]projection.Projection), page)
}

func (s *QueryService) ListPlayers(ctx context.Context, sportID *int64) ([]player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.ListPlayers", sportAttr(sportID)...)
	defer span.End()

	if sportID != nil && *sportID <= 0 {
		return nil, fmt.Errorf("%w: sport id must be greater than zero", ErrInvalidInput)
	}
	if s.refresher != nil {
		s.refresher.EnsureFresh(ctx, sportID)
	}

	out, err := s.staleness.Remember(ctx, playersCacheKey(sportID), func(ctx context.Context) (any, error) {
		items, err := s.playerRepo.List(ctx, sportID)
		if err != nil {
			return nil, fmt.Errorf("list players: %w", err)
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]player.Player), nil
}

// FindPlayerByName returns the first player whose name contains name, ignoring case.
func (s *QueryService) FindPlayerByName(ctx context.Context, name string) (player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.FindPlayerByName")
	defer span.End()

	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return player.Player{}, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}

	items, err := s.ListPlayers(ctx, nil)
	if err != nil {
		return player.Player{}, err
	}
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			return item, nil
		}
	}
	return player.Player{}, fmt.Errorf("%w: player=%s", ErrNotFound, strings.TrimSpace(name))
}

func (s *QueryService) ListGames(ctx context.Context, sportID *int64) ([]game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.ListGames", sportAttr(sportID)...)
	defer span.End()

	if sportID != nil && *sportID <= 0 {
		return nil, fmt.Errorf("%w: sport id must be greater than zero", ErrInvalidInput)
	}
	if s.refresher != nil {
		s.refresher.EnsureFresh(ctx, sportID)
	}

	out, err := s.staleness.Remember(ctx, gamesCacheKey(sportID), func(ctx context.Context) (any, error) {
		items, err := s.gameRepo.List(ctx, sportID)
		if err != nil {
			return nil, fmt.Errorf("list games: %w", err)
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]game.Game), nil
}

func (s *QueryService) FindGameByID(ctx context.Context, gameID string) (game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.FindGameByID")
	defer span.End()

	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return game.Game{}, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}
	if s.refresher != nil {
		s.refresher.EnsureFresh(ctx, nil)
	}

	item, exists, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return game.Game{}, fmt.Errorf("get game: %w", err)
	}
	if !exists {
		return game.Game{}, fmt.Errorf("%w: game=%s", ErrNotFound, gameID)
	}
	return item, nil
}
