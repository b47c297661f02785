package postgres

import "time"

type projectionTableModel struct {
	ID          string     `db:"id"`
	SportID     int64      `db:"sport_id"`
	SportName   string     `db:"sport_name"`
	PlayerID    string     `db:"player_id"`
	PlayerName  string     `db:"player_name"`
	GameID      *string    `db:"game_id"`
	StatType    string     `db:"stat_type"`
	LineScore   float64    `db:"line_score"`
	Description *string    `db:"description"`
	StartTime   *time.Time `db:"start_time"`
	IsActive    bool       `db:"is_active"`
	Opponent    *string    `db:"opponent"`
	UpdatedAt   time.Time  `db:"updated_at"`
}
