package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/jobscheduler"
)

// JobDispatchRepository keeps the latest event per dispatch id.
type JobDispatchRepository struct {
	mu     sync.RWMutex
	events map[string]jobscheduler.DispatchEvent
}

func NewJobDispatchRepository() *JobDispatchRepository {
	return &JobDispatchRepository{events: make(map[string]jobscheduler.DispatchEvent)}
}

func (r *JobDispatchRepository) UpsertEvent(_ context.Context, event jobscheduler.DispatchEvent) error {
	event, err := event.Normalize(time.Now())
	if err != nil {
		return err
	}
	event.Payload = maps.Clone(event.Payload)

	r.mu.Lock()
	defer r.mu.Unlock()

	// A late "sent" never reopens a finished run.
	if prev, ok := r.events[event.DispatchID]; ok && prev.Status.Terminal() && !event.Status.Terminal() {
		return nil
	}
	r.events[event.DispatchID] = event
	return nil
}

func (r *JobDispatchRepository) Get(dispatchID string) (jobscheduler.DispatchEvent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[dispatchID]
	return event, ok
}
