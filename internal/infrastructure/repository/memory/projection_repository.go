package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/projection"
)

// ProjectionRepository keeps one immutable generation of projections per sport.
// ReplaceBySport swaps the whole generation under the write lock, so readers never see
// a mix of old and new records.
type ProjectionRepository struct {
	mu          sync.RWMutex
	generations map[int64][]projection.Projection
}

func NewProjectionRepository() *ProjectionRepository {
	return &ProjectionRepository{generations: make(map[int64][]projection.Projection)}
}

func (r *ProjectionRepository) ReplaceBySport(_ context.Context, sportID int64, items []projection.Projection) error {
	next := make([]projection.Projection, 0, len(items))
	for _, item := range items {
		if item.SportID != sportID {
			continue
		}
		next = append(next, item)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(next) == 0 {
		delete(r.generations, sportID)
		return nil
	}
	r.generations[sportID] = next
	return nil
}

func (r *ProjectionRepository) List(_ context.Context, filter projection.Filter) ([]projection.Projection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]projection.Projection, 0)
	for _, sportID := range r.sportIDs(filter.SportID) {
		for _, item := range r.generations[sportID] {
			if filter.Matches(item) {
				out = append(out, item)
			}
		}
	}

	return out, nil
}

func (r *ProjectionRepository) Count(ctx context.Context, filter projection.Filter) (int, error) {
	if filter.PlayerName == "" && filter.StatType == "" {
		r.mu.RLock()
		defer r.mu.RUnlock()

		total := 0
		for _, sportID := range r.sportIDs(filter.SportID) {
			total += len(r.generations[sportID])
		}
		return total, nil
	}

	items, err := r.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (r *ProjectionRepository) sportIDs(sportID *int64) []int64 {
	if sportID != nil {
		return []int64{*sportID}
	}
	ids := make([]int64, 0, len(r.generations))
	for id := range r.generations {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
