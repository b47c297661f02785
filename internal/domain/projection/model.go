package projection

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Projection is a single player proposition: a stat type and the line to beat.
type Projection struct {
	ID          string
	PlayerID    string
	PlayerName  string
	SportID     int64
	SportName   string
	GameID      string
	StatType    string
	LineScore   float64
	Description string
	StartTime   *time.Time
	IsActive    bool
	Opponent    string
	UpdatedAt   time.Time
}

func (p Projection) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("projection id is required")
	}
	if p.PlayerID == "" {
		return fmt.Errorf("projection player id is required")
	}
	if p.SportID <= 0 {
		return fmt.Errorf("projection sport id must be greater than zero")
	}
	if math.IsNaN(p.LineScore) || math.IsInf(p.LineScore, 0) {
		return fmt.Errorf("projection line score must be finite")
	}
	if p.LineScore < 0 {
		return fmt.Errorf("projection line score must not be negative")
	}

	return nil
}

// Filter narrows projection queries. Zero values mean "no constraint".
type Filter struct {
	SportID    *int64
	PlayerName string
	StatType   string
}

// Matches reports whether p satisfies every constraint of f. Player name is a
// case-insensitive substring match; stat type is a case-insensitive exact match.
func (f Filter) Matches(p Projection) bool {
	if f.SportID != nil && p.SportID != *f.SportID {
		return false
	}
	if name := strings.TrimSpace(f.PlayerName); name != "" &&
		!strings.Contains(strings.ToLower(p.PlayerName), strings.ToLower(name)) {
		return false
	}
	if stat := strings.TrimSpace(f.StatType); stat != "" && !strings.EqualFold(p.StatType, stat) {
		return false
	}
	return true
}
