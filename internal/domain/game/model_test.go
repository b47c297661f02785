package game

import (
	"slices"
	"testing"
)

func TestMergePlayers(t *testing.T) {
	t.Parallel()

	got := MergePlayers([]string{"a", "b"}, []string{"b", "c", "", "a", "d"})
	want := []string{"a", "b", "c", "d"}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected merge: got=%v want=%v", got, want)
	}
}

func TestMergePlayersDoesNotAliasInput(t *testing.T) {
	t.Parallel()

	existing := make([]string, 1, 4)
	existing[0] = "a"
	_ = MergePlayers(existing, []string{"b"})
	if len(existing) != 1 {
		t.Fatalf("input slice must not be modified")
	}
}
