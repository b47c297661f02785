package postgres

import (
	"time"

	"github.com/lib/pq"
)

type gameTableModel struct {
	ID        string         `db:"id"`
	SportID   int64          `db:"sport_id"`
	SportName string         `db:"sport_name"`
	HomeTeam  string         `db:"home_team"`
	AwayTeam  string         `db:"away_team"`
	StartTime *time.Time     `db:"start_time"`
	Status    *string        `db:"status"`
	Score     *string        `db:"score"`
	PlayerIDs pq.StringArray `db:"player_ids"`
	UpdatedAt time.Time      `db:"updated_at"`
}
