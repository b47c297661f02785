package game

import (
	"fmt"
	"slices"
	"time"
)

const UnknownTeam = "Unknown"

// Game is a fixture reconstructed from projections that reference it.
type Game struct {
	ID        string
	SportID   int64
	SportName string
	HomeTeam  string
	AwayTeam  string
	StartTime *time.Time
	Status    string
	Score     map[string]any
	PlayerIDs []string
	UpdatedAt time.Time
}

func (g Game) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("game id is required")
	}
	if g.SportID <= 0 {
		return fmt.Errorf("game sport id must be greater than zero")
	}

	return nil
}

// MergePlayers appends ids not yet present, keeping first-seen order.
func MergePlayers(existing, incoming []string) []string {
	out := slices.Clone(existing)
	for _, id := range incoming {
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
