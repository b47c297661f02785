package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prizepicks-feed/internal/infrastructure/repository/memory"
)

// BootstrapSeed stores the well-known sport catalog when the sports table is empty.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM sports`); err != nil {
		return fmt.Errorf("count sports for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	if err := NewSportRepository(db).UpsertMany(ctx, memory.SeedSports()); err != nil {
		return fmt.Errorf("seed sports: %w", err)
	}
	return nil
}
