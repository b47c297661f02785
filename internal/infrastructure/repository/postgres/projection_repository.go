package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/projection"
	qb "github.com/riskibarqy/prizepicks-feed/internal/platform/querybuilder"
)

type ProjectionRepository struct {
	db *sqlx.DB
}

var projectionSelectColumns = []string{
	"id",
	"sport_id",
	"sport_name",
	"player_id",
	"player_name",
	"game_id",
	"stat_type",
	"line_score",
	"description",
	"start_time",
	"is_active",
	"opponent",
	"updated_at",
}

func NewProjectionRepository(db *sqlx.DB) *ProjectionRepository {
	return &ProjectionRepository{db: db}
}

// ReplaceBySport deletes and reinserts the projections of one sport in a single
// transaction.
func (r *ProjectionRepository) ReplaceBySport(ctx context.Context, sportID int64, items []projection.Projection) error {
	now := time.Now().UTC()
	rows := make([]projectionTableModel, 0, len(items))
	for _, item := range items {
		if item.SportID != sportID {
			continue
		}
		rows = append(rows, projectionToRow(item, now))
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for projection replace: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	deleteQuery, deleteArgs, err := qb.DeleteFrom("projections").
		Where(qb.Eq("sport_id", sportID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete projections query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return fmt.Errorf("delete projections sport_id=%d: %w", sportID, err)
	}

	for _, chunk := range chunks(rows, insertChunkSize) {
		query, args, err := qb.InsertModels("projections", chunk, "ON CONFLICT (sport_id, id) DO NOTHING")
		if err != nil {
			return fmt.Errorf("build insert projections query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert projections sport_id=%d: %w", sportID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit projection replace sport_id=%d: %w", sportID, err)
	}
	return nil
}

func (r *ProjectionRepository) List(ctx context.Context, filter projection.Filter) ([]projection.Projection, error) {
	query, args, err := qb.Select(projectionSelectColumns...).From("projections").
		Where(projectionConditions(filter)...).
		OrderBy("sport_id", "start_time NULLS LAST", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select projections query: %w", err)
	}

	var rows []projectionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select projections: %w", err)
	}

	out := make([]projection.Projection, 0, len(rows))
	for _, row := range rows {
		out = append(out, projectionFromRow(row))
	}
	return out, nil
}

func (r *ProjectionRepository) Count(ctx context.Context, filter projection.Filter) (int, error) {
	query, args, err := qb.Select("COUNT(1)").From("projections").
		Where(projectionConditions(filter)...).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count projections query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count projections: %w", err)
	}
	return count, nil
}

func projectionConditions(filter projection.Filter) []qb.Condition {
	conditions := make([]qb.Condition, 0, 3)
	if filter.SportID != nil {
		conditions = append(conditions, qb.Eq("sport_id", *filter.SportID))
	}
	if name := strings.TrimSpace(filter.PlayerName); name != "" {
		conditions = append(conditions, qb.ILike("player_name", qb.Contains(name)))
	}
	if stat := strings.TrimSpace(filter.StatType); stat != "" {
		conditions = append(conditions, qb.Expr("LOWER(stat_type) = LOWER(?)", stat))
	}
	return conditions
}

func projectionToRow(item projection.Projection, now time.Time) projectionTableModel {
	updatedAt := item.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}
	return projectionTableModel{
		ID:          item.ID,
		SportID:     item.SportID,
		SportName:   item.SportName,
		PlayerID:    item.PlayerID,
		PlayerName:  item.PlayerName,
		GameID:      optionalString(item.GameID),
		StatType:    item.StatType,
		LineScore:   item.LineScore,
		Description: optionalString(item.Description),
		StartTime:   item.StartTime,
		IsActive:    item.IsActive,
		Opponent:    optionalString(item.Opponent),
		UpdatedAt:   updatedAt,
	}
}

func projectionFromRow(row projectionTableModel) projection.Projection {
	return projection.Projection{
		ID:          row.ID,
		PlayerID:    row.PlayerID,
		PlayerName:  row.PlayerName,
		SportID:     row.SportID,
		SportName:   row.SportName,
		GameID:      stringOrEmpty(row.GameID),
		StatType:    row.StatType,
		LineScore:   row.LineScore,
		Description: stringOrEmpty(row.Description),
		StartTime:   row.StartTime,
		IsActive:    row.IsActive,
		Opponent:    stringOrEmpty(row.Opponent),
		UpdatedAt:   row.UpdatedAt,
	}
}
