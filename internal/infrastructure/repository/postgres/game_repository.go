package postgres

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/game"
	qb "github.com/riskibarqy/prizepicks-feed/internal/platform/querybuilder"
)

type GameRepository struct {
	db *sqlx.DB
}

var gameSelectColumns = []string{
	"id",
	"sport_id",
	"sport_name",
	"home_team",
	"away_team",
	"start_time",
	"status",
	"score::text AS score",
	"player_ids",
	"updated_at",
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) List(ctx context.Context, sportID *int64) ([]game.Game, error) {
	query, args, err := qb.Select(gameSelectColumns...).From("games").
		Where(sportCondition(sportID)...).
		OrderBy("sport_id", "start_time NULLS LAST", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select games query: %w", err)
	}

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select games: %w", err)
	}

	out := make([]game.Game, 0, len(rows))
	for _, row := range rows {
		item, err := gameFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *GameRepository) Count(ctx context.Context, sportID *int64) (int, error) {
	return countBySport(ctx, r.db, "games", sportID)
}

func (r *GameRepository) GetByID(ctx context.Context, gameID string) (game.Game, bool, error) {
	query, args, err := qb.Select(gameSelectColumns...).From("games").
		Where(qb.Eq("id", gameID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return game.Game{}, false, fmt.Errorf("build select game by id query: %w", err)
	}

	var row gameTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, false, nil
		}
		return game.Game{}, false, fmt.Errorf("select game by id=%s: %w", gameID, err)
	}

	item, err := gameFromRow(row)
	if err != nil {
		return game.Game{}, false, err
	}
	return item, true, nil
}

// UpsertMany appends participants that are not stored yet instead of overwriting the list.
func (r *GameRepository) UpsertMany(ctx context.Context, items []game.Game) error {
	if len(items) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]gameTableModel, 0, len(items))
	for _, item := range items {
		var score *string
		if len(item.Score) > 0 {
			raw, err := marshalJSON(item.Score, "{}")
			if err != nil {
				return fmt.Errorf("marshal game score id=%s: %w", item.ID, err)
			}
			score = &raw
		}
		updatedAt := item.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = now
		}
		rows = append(rows, gameTableModel{
			ID:        item.ID,
			SportID:   item.SportID,
			SportName: item.SportName,
			HomeTeam:  item.HomeTeam,
			AwayTeam:  item.AwayTeam,
			StartTime: item.StartTime,
			Status:    optionalString(item.Status),
			Score:     score,
			PlayerIDs: pq.StringArray(game.MergePlayers(nil, item.PlayerIDs)),
			UpdatedAt: updatedAt,
		})
	}

	for _, chunk := range chunks(rows, insertChunkSize) {
		query, args, err := qb.InsertModels("games", chunk, `ON CONFLICT (id)
DO UPDATE SET
    sport_id = EXCLUDED.sport_id,
    sport_name = EXCLUDED.sport_name,
    home_team = EXCLUDED.home_team,
    away_team = EXCLUDED.away_team,
    start_time = COALESCE(EXCLUDED.start_time, games.start_time),
    status = COALESCE(EXCLUDED.status, games.status),
    score = COALESCE(EXCLUDED.score, games.score),
    player_ids = games.player_ids || ARRAY(
        SELECT incoming.player_id
        FROM unnest(EXCLUDED.player_ids) WITH ORDINALITY AS incoming(player_id, position)
        WHERE NOT incoming.player_id = ANY(games.player_ids)
        ORDER BY incoming.position
    ),
    updated_at = EXCLUDED.updated_at`)
		if err != nil {
			return fmt.Errorf("build upsert games query: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert games: %w", err)
		}
	}
	return nil
}

func gameFromRow(row gameTableModel) (game.Game, error) {
	var score map[string]any
	if row.Score != nil && *row.Score != "" {
		if err := sonic.UnmarshalString(*row.Score, &score); err != nil {
			return game.Game{}, fmt.Errorf("decode game score id=%s: %w", row.ID, err)
		}
	}
	return game.Game{
		ID:        row.ID,
		SportID:   row.SportID,
		SportName: row.SportName,
		HomeTeam:  row.HomeTeam,
		AwayTeam:  row.AwayTeam,
		StartTime: row.StartTime,
		Status:    stringOrEmpty(row.Status),
		Score:     score,
		PlayerIDs: []string(row.PlayerIDs),
		UpdatedAt: row.UpdatedAt,
	}, nil
}
