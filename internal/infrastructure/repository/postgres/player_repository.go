package postgres

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/player"
	qb "github.com/riskibarqy/prizepicks-feed/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

var playerSelectColumns = []string{
	"id",
	"sport_id",
	"sport_name",
	"name",
	"position",
	"team",
	"image_url",
	"projections::text AS projections",
	"updated_at",
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) List(ctx context.Context, sportID *int64) ([]player.Player, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("players").
		Where(sportCondition(sportID)...).
		OrderBy("sport_id", "name", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		item, err := playerFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *PlayerRepository) Count(ctx context.Context, sportID *int64) (int, error) {
	return countBySport(ctx, r.db, "players", sportID)
}

func (r *PlayerRepository) UpsertMany(ctx context.Context, items []player.Player) error {
	if len(items) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]playerTableModel, 0, len(items))
	for _, item := range items {
		projections, err := marshalJSON(item.Projections, "[]")
		if err != nil {
			return fmt.Errorf("marshal player projections id=%s: %w", item.ID, err)
		}
		updatedAt := item.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = now
		}
		rows = append(rows, playerTableModel{
			ID:          item.ID,
			SportID:     item.SportID,
			SportName:   item.SportName,
			Name:        item.Name,
			Position:    optionalString(item.Position),
			Team:        optionalString(item.Team),
			ImageURL:    optionalString(item.ImageURL),
			Projections: projections,
			UpdatedAt:   updatedAt,
		})
	}

	for _, chunk := range chunks(rows, insertChunkSize) {
		query, args, err := qb.InsertModels("players", chunk, `ON CONFLICT (id)
DO UPDATE SET
    sport_id = EXCLUDED.sport_id,
    sport_name = EXCLUDED.sport_name,
    name = EXCLUDED.name,
    position = EXCLUDED.position,
    team = EXCLUDED.team,
    image_url = EXCLUDED.image_url,
    projections = EXCLUDED.projections,
    updated_at = EXCLUDED.updated_at`)
		if err != nil {
			return fmt.Errorf("build upsert players query: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert players: %w", err)
		}
	}
	return nil
}

func playerFromRow(row playerTableModel) (player.Player, error) {
	var projections []player.ProjectionSummary
	if row.Projections != "" {
		if err := sonic.UnmarshalString(row.Projections, &projections); err != nil {
			return player.Player{}, fmt.Errorf("decode player projections id=%s: %w", row.ID, err)
		}
	}
	return player.Player{
		ID:          row.ID,
		Name:        row.Name,
		Position:    stringOrEmpty(row.Position),
		Team:        stringOrEmpty(row.Team),
		SportID:     row.SportID,
		SportName:   row.SportName,
		ImageURL:    stringOrEmpty(row.ImageURL),
		Projections: projections,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func sportCondition(sportID *int64) []qb.Condition {
	if sportID == nil {
		return nil
	}
	return []qb.Condition{qb.Eq("sport_id", *sportID)}
}

func countBySport(ctx context.Context, db *sqlx.DB, table string, sportID *int64) (int, error) {
	query, args, err := qb.Select("COUNT(1)").From(table).
		Where(sportCondition(sportID)...).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count %s query: %w", table, err)
	}

	var count int
	if err := db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}
