package jobscheduler

import "context"

// Repository stores the latest state of each dispatched refresh job.
type Repository interface {
	UpsertEvent(ctx context.Context, event DispatchEvent) error
}
