package postgres

import "time"

type sportTableModel struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Category  *string   `db:"category"`
	Active    bool      `db:"active"`
	UpdatedAt time.Time `db:"updated_at"`
}
