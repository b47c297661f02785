package postgres

import "time"

type playerTableModel struct {
	ID          string    `db:"id"`
	SportID     int64     `db:"sport_id"`
	SportName   string    `db:"sport_name"`
	Name        string    `db:"name"`
	Position    *string   `db:"position"`
	Team        *string   `db:"team"`
	ImageURL    *string   `db:"image_url"`
	Projections string    `db:"projections"`
	UpdatedAt   time.Time `db:"updated_at"`
}
