package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/sport"
	qb "github.com/riskibarqy/prizepicks-feed/internal/platform/querybuilder"
)

type SportRepository struct {
	db *sqlx.DB
}

var sportSelectColumns = []string{"id", "name", "category", "active", "updated_at"}

func NewSportRepository(db *sqlx.DB) *SportRepository {
	return &SportRepository{db: db}
}

func (r *SportRepository) List(ctx context.Context) ([]sport.Sport, error) {
	query, args, err := qb.Select(sportSelectColumns...).From("sports").
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select sports query: %w", err)
	}

	var rows []sportTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select sports: %w", err)
	}

	out := make([]sport.Sport, 0, len(rows))
	for _, row := range rows {
		out = append(out, sportFromRow(row))
	}
	return out, nil
}

func (r *SportRepository) GetByID(ctx context.Context, sportID int64) (sport.Sport, bool, error) {
	query, args, err := qb.Select(sportSelectColumns...).From("sports").
		Where(qb.Eq("id", sportID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return sport.Sport{}, false, fmt.Errorf("build select sport by id query: %w", err)
	}

	var row sportTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return sport.Sport{}, false, nil
		}
		return sport.Sport{}, false, fmt.Errorf("select sport by id=%d: %w", sportID, err)
	}
	return sportFromRow(row), true, nil
}

func (r *SportRepository) UpsertMany(ctx context.Context, items []sport.Sport) error {
	if len(items) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]sportTableModel, 0, len(items))
	for _, item := range items {
		rows = append(rows, sportTableModel{
			ID:        item.ID,
			Name:      item.Name,
			Category:  optionalString(item.Category),
			Active:    item.Active,
			UpdatedAt: now,
		})
	}

	query, args, err := qb.InsertModels("sports", rows, `ON CONFLICT (id)
DO UPDATE SET
    name = EXCLUDED.name,
    category = EXCLUDED.category,
    active = EXCLUDED.active,
    updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("build upsert sports query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert sports: %w", err)
	}
	return nil
}

func sportFromRow(row sportTableModel) sport.Sport {
	return sport.Sport{
		ID:       row.ID,
		Name:     row.Name,
		Category: stringOrEmpty(row.Category),
		Active:   row.Active,
	}
}
