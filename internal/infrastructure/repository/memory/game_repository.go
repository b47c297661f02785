package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/game"
)

type GameRepository struct {
	mu     sync.RWMutex
	items  map[string]game.Game
	orders []string
}

func NewGameRepository(games []game.Game) *GameRepository {
	r := &GameRepository{items: make(map[string]game.Game, len(games))}
	r.put(games)
	return r
}

func (r *GameRepository) List(_ context.Context, sportID *int64) ([]game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]game.Game, 0, len(r.orders))
	for _, id := range r.orders {
		item := r.items[id]
		if sportID != nil && item.SportID != *sportID {
			continue
		}
		out = append(out, cloneGame(item))
	}

	return out, nil
}

func (r *GameRepository) Count(_ context.Context, sportID *int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if sportID == nil {
		return len(r.items), nil
	}
	total := 0
	for _, item := range r.items {
		if item.SportID == *sportID {
			total++
		}
	}
	return total, nil
}

func (r *GameRepository) GetByID(_ context.Context, gameID string) (game.Game, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[gameID]
	if !ok {
		return game.Game{}, false, nil
	}
	return cloneGame(item), true, nil
}

func (r *GameRepository) UpsertMany(_ context.Context, items []game.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.put(items)
	return nil
}

func (r *GameRepository) put(items []game.Game) {
	for _, item := range items {
		existing, exists := r.items[item.ID]
		if !exists {
			r.orders = append(r.orders, item.ID)
		} else {
			item.PlayerIDs = game.MergePlayers(existing.PlayerIDs, item.PlayerIDs)
		}
		r.items[item.ID] = cloneGame(item)
	}
}

func cloneGame(item game.Game) game.Game {
	item.PlayerIDs = slices.Clone(item.PlayerIDs)
	item.Score = maps.Clone(item.Score)
	return item
}
