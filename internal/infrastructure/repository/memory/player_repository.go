package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/player"
)

type PlayerRepository struct {
	mu     sync.RWMutex
	items  map[string]player.Player
	orders []string
}

func NewPlayerRepository(players []player.Player) *PlayerRepository {
	r := &PlayerRepository{items: make(map[string]player.Player, len(players))}
	r.put(players)
	return r
}

func (r *PlayerRepository) List(_ context.Context, sportID *int64) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.Player, 0, len(r.orders))
	for _, id := range r.orders {
		item := r.items[id]
		if sportID != nil && item.SportID != *sportID {
			continue
		}
		out = append(out, clonePlayer(item))
	}

	return out, nil
}

func (r *PlayerRepository) Count(_ context.Context, sportID *int64) (int, error) {
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

func (r *PlayerRepository) UpsertMany(_ context.Context, items []player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.put(items)
	return nil
}

func (r *PlayerRepository) put(items []player.Player) {
	for _, item := range items {
		if _, exists := r.items[item.ID]; !exists {
			r.orders = append(r.orders, item.ID)
		}
		r.items[item.ID] = clonePlayer(item)
	}
}

func clonePlayer(item player.Player) player.Player {
	item.Projections = slices.Clone(item.Projections)
	return item
}
