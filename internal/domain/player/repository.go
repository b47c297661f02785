package player

import "context"

// Repository describes player persistence needs from use cases.
type Repository interface {
	// List returns players of one sport, or of all sports when sportID is nil.
	List(ctx context.Context, sportID *int64) ([]Player, error)
	Count(ctx context.Context, sportID *int64) (int, error)
	UpsertMany(ctx context.Context, items []Player) error
}
