package game

import "context"

// Repository describes game persistence needs from use cases.
type Repository interface {
	List(ctx context.Context, sportID *int64) ([]Game, error)
	Count(ctx context.Context, sportID *int64) (int, error)
	GetByID(ctx context.Context, gameID string) (Game, bool, error)
	// UpsertMany inserts new games and refreshes existing ones. Participant lists are
	// merged, never shrunk.
	UpsertMany(ctx context.Context, items []Game) error
}
