package player

import (
	"fmt"
	"time"
)

// ProjectionSummary is the slice of a projection kept on the player record.
type ProjectionSummary struct {
	ID        string     `json:"id"`
	StatType  string     `json:"stat_type"`
	LineScore float64    `json:"line_score"`
	GameID    string     `json:"game_id,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	IsActive  bool       `json:"is_active"`
	Opponent  string     `json:"opponent,omitempty"`
}

// Player is an athlete derived from the projections published for a sport.
type Player struct {
	ID          string
	Name        string
	Position    string
	Team        string
	SportID     int64
	SportName   string
	ImageURL    string
	Projections []ProjectionSummary
	UpdatedAt   time.Time
}

func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("player name is required")
	}
	if p.SportID <= 0 {
		return fmt.Errorf("player sport id must be greater than zero")
	}

	return nil
}
