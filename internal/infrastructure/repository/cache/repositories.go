package cache

import (
	"context"
	"strconv"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/game"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/sport"
	basecache "github.com/riskibarqy/prizepicks-feed/internal/platform/cache"
)

const (
	sportListKey     = "sport:list"
	sportIDKeyPrefix = "sport:id:"
	gameIDKeyPrefix  = "game:id:"
)

// SportRepository is a read-through cache in front of the sport catalog. Writes go to the
// next repository and drop every cached sport entry.
type SportRepository struct {
	next  sport.Repository
	cache *basecache.Store
}

func NewSportRepository(next sport.Repository, cache *basecache.Store) *SportRepository {
	return &SportRepository{next: next, cache: cache}
}

func (r *SportRepository) List(ctx context.Context) ([]sport.Sport, error) {
	v, err := r.cache.GetOrLoad(ctx, sportListKey, func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]sport.Sport(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]sport.Sport)
	return append([]sport.Sport(nil), items...), nil
}

func (r *SportRepository) GetByID(ctx context.Context, sportID int64) (sport.Sport, bool, error) {
	key := sportIDKeyPrefix + strconv.FormatInt(sportID, 10)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, sportID)
		if err != nil {
			return nil, err
		}
		return cachedSportByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return sport.Sport{}, false, err
	}

	cached, _ := v.(cachedSportByID)
	return cached.value, cached.exists, nil
}

func (r *SportRepository) UpsertMany(ctx context.Context, items []sport.Sport) error {
	if err := r.next.UpsertMany(ctx, items); err != nil {
		return err
	}
	r.cache.Delete(ctx, sportListKey)
	r.cache.DeletePrefix(ctx, sportIDKeyPrefix)
	return nil
}

type cachedSportByID struct {
	value  sport.Sport
	exists bool
}

// GameRepository caches single-game lookups. Upserts evict the affected ids.
type GameRepository struct {
	next  game.Repository
	cache *basecache.Store
}

func NewGameRepository(next game.Repository, cache *basecache.Store) *GameRepository {
	return &GameRepository{next: next, cache: cache}
}

func (r *GameRepository) List(ctx context.Context, sportID *int64) ([]game.Game, error) {
	return r.next.List(ctx, sportID)
}

func (r *GameRepository) Count(ctx context.Context, sportID *int64) (int, error) {
	return r.next.Count(ctx, sportID)
}

func (r *GameRepository) GetByID(ctx context.Context, gameID string) (game.Game, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, gameIDKeyPrefix+gameID, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, gameID)
		if err != nil {
			return nil, err
		}
		return cachedGameByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return game.Game{}, false, err
	}

	cached, _ := v.(cachedGameByID)
	return cached.value, cached.exists, nil
}

func (r *GameRepository) UpsertMany(ctx context.Context, items []game.Game) error {
	if err := r.next.UpsertMany(ctx, items); err != nil {
		return err
	}
	for _, item := range items {
		r.cache.Delete(ctx, gameIDKeyPrefix+item.ID)
	}
	return nil
}

type cachedGameByID struct {
	value  game.Game
	exists bool
}
