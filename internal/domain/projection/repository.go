package projection

import "context"

// Repository describes projection persistence needs from use cases.
type Repository interface {
	// ReplaceBySport swaps the stored projections of one sport for items atomically:
	// concurrent readers observe either the previous set or the new one.
	ReplaceBySport(ctx context.Context, sportID int64, items []Projection) error
	List(ctx context.Context, filter Filter) ([]Projection, error)
	Count(ctx context.Context, filter Filter) (int, error)
}
