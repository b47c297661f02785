package postgres

import (
	"testing"
	"time"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/projection"
	qb "github.com/riskibarqy/prizepicks-feed/internal/platform/querybuilder"
)

func TestChunks(t *testing.T) {
	t.Run("splits with remainder", func(t *testing.T) {
		got := chunks([]int{1, 2, 3, 4, 5}, 2)
		if len(got) != 3 || len(got[2]) != 1 || got[2][0] != 5 {
			t.Fatalf("unexpected chunks: %v", got)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := chunks([]int{}, 2); len(got) != 0 {
			t.Fatalf("expected no chunks, got %v", got)
		}
	})
}

func TestMarshalJSON(t *testing.T) {
	t.Run("nil map uses empty value", func(t *testing.T) {
		var payload map[string]any
		got, err := marshalJSON(payload, "{}")
		if err != nil || got != "{}" {
			t.Fatalf("unexpected marshal result: %q err=%v", got, err)
		}
	})

	t.Run("encodes values", func(t *testing.T) {
		got, err := marshalJSON(map[string]any{"home": 101}, "{}")
		if err != nil || got != `{"home":101}` {
			t.Fatalf("unexpected marshal result: %q err=%v", got, err)
		}
	})
}

func TestProjectionConditions(t *testing.T) {
	sportID := int64(7)
	query, args, err := qb.Select("id").From("projections").
		Where(projectionConditions(projection.Filter{SportID: &sportID, PlayerName: " james ", StatType: "Points"})...).
		ToSQL()
	if err != nil {
		t.Fatalf("build query: %v", err)
	}

	want := "SELECT id FROM projections WHERE sport_id = $1 AND player_name ILIKE $2 AND LOWER(stat_type) = LOWER($3)"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 3 || args[1] != "%james%" || args[2] != "Points" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestProjectionRowRoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 30, 0, 0, time.UTC)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := projection.Projection{
		ID:         "1001",
		PlayerID:   "p1",
		PlayerName: "LeBron James",
		SportID:    7,
		SportName:  "NBA",
		StatType:   "Points",
		LineScore:  27.5,
		StartTime:  &start,
		IsActive:   true,
	}

	row := projectionToRow(item, now)
	if row.GameID != nil || row.Description != nil {
		t.Fatalf("expected empty optional columns to be NULL: %+v", row)
	}
	if !row.UpdatedAt.Equal(now) {
		t.Fatalf("expected updated_at to default to now, got %v", row.UpdatedAt)
	}

	got := projectionFromRow(row)
	if got.ID != item.ID || got.LineScore != item.LineScore || got.GameID != "" || !got.StartTime.Equal(start) {
		t.Fatalf("unexpected projection: %+v", got)
	}
}
