package memory

import "github.com/riskibarqy/prizepicks-feed/internal/domain/sport"

var seedSportIDs = []int64{2, 3, 4, 5, 7, 9, 10, 12, 19}

// SeedSports returns the well-known sport catalog, used until the first upstream sports
// fetch succeeds.
func SeedSports() []sport.Sport {
	out := make([]sport.Sport, 0, len(seedSportIDs))
	for _, id := range seedSportIDs {
		out = append(out, sport.Sport{
			ID:     id,
			Name:   sport.NameByID(id),
			Active: true,
		})
	}
	return out
}
