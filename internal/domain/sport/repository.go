package sport

import "context"

// Repository describes sport catalog persistence needs from use cases.
type Repository interface {
	List(ctx context.Context) ([]Sport, error)
	GetByID(ctx context.Context, sportID int64) (Sport, bool, error)
	UpsertMany(ctx context.Context, items []Sport) error
}
