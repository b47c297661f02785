package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("id", "stat_type").
		From("projections").
		Where(Eq("sport_id", int64(7)), Expr("deleted_at IS NULL")).
		OrderBy("id").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, stat_type FROM projections WHERE sport_id = $1 AND deleted_at IS NULL ORDER BY id LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != int64(7) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_ILike(t *testing.T) {
	query, args, err := Select("id").
		From("projections").
		Where(ILike("player_name", Contains("james")), Expr("LOWER(stat_type) = LOWER(?)", "Points")).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id FROM projections WHERE player_name ILIKE $1 AND LOWER(stat_type) = LOWER($2)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "%james%" || args[1] != "Points" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestContains_EscapesWildcards(t *testing.T) {
	if got := Contains(`50%_off\`); got != `%50\%\_off\\%` {
		t.Fatalf("unexpected pattern: %s", got)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("sports").
		Columns("id", "name").
		Values(int64(7), "NBA").
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO sports (id, name) VALUES ($1, $2) RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != int64(7) || args[1] != "NBA" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_RowWidthMismatch(t *testing.T) {
	_, _, err := InsertInto("sports").
		Columns("id", "name").
		Values(int64(7)).
		ToSQL()
	if err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("projections").
		Where(Eq("sport_id", int64(7))).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}

	wantQuery := "DELETE FROM projections WHERE sport_id = $1"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != int64(7) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder_RequiresConditions(t *testing.T) {
	if _, _, err := DeleteFrom("projections").ToSQL(); err == nil {
		t.Fatalf("expected error for unconditioned delete")
	}
}

type sportRow struct {
	ID     int64  `db:"id"`
	Name   string `db:"name"`
	Ignore string `db:"-"`
}

func TestInsertModels(t *testing.T) {
	query, args, err := InsertModels("sports", []sportRow{
		{ID: 7, Name: "NBA"},
		{ID: 2, Name: "NFL"},
	}, "ON CONFLICT (id) DO NOTHING")
	if err != nil {
		t.Fatalf("build insert models query: %v", err)
	}

	wantQuery := "INSERT INTO sports (id, name) VALUES ($1, $2), ($3, $4) ON CONFLICT (id) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[2] != int64(2) || args[3] != "NFL" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModels_Empty(t *testing.T) {
	if _, _, err := InsertModels[sportRow]("sports", nil, ""); err == nil {
		t.Fatalf("expected error for empty models")
	}
}

func TestInsertModel_Pointer(t *testing.T) {
	query, args, err := InsertModel("sports", &sportRow{ID: 7, Name: "NBA"}, "")
	if err != nil {
		t.Fatalf("build insert model query: %v", err)
	}
	if query != "INSERT INTO sports (id, name) VALUES ($1, $2)" {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModel_RejectsNonStruct(t *testing.T) {
	if _, _, err := InsertModel("sports", 7, ""); err == nil {
		t.Fatalf("expected error for non-struct model")
	}
}
