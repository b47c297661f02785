package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/sport"
)

type SportRepository struct {
	mu     sync.RWMutex
	items  map[int64]sport.Sport
	orders []int64
}

func NewSportRepository(sports []sport.Sport) *SportRepository {
	r := &SportRepository{items: make(map[int64]sport.Sport, len(sports))}
	r.put(sports)
	return r
}

func (r *SportRepository) List(_ context.Context) ([]sport.Sport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]sport.Sport, 0, len(r.orders))
	for _, id := range r.orders {
		out = append(out, r.items[id])
	}

	return out, nil
}

func (r *SportRepository) GetByID(_ context.Context, sportID int64) (sport.Sport, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[sportID]
	if !ok {
		return sport.Sport{}, false, nil
	}

	return item, true, nil
}

func (r *SportRepository) UpsertMany(_ context.Context, items []sport.Sport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.put(items)
	return nil
}

func (r *SportRepository) put(items []sport.Sport) {
	for _, item := range items {
		if _, exists := r.items[item.ID]; !exists {
			r.orders = append(r.orders, item.ID)
		}
		r.items[item.ID] = item
	}
	slices.Sort(r.orders)
}
