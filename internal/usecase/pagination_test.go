package usecase

import (
	"errors"
	"math"
	"testing"
)

func seqInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPaginate_PageMath(t *testing.T) {
	t.Parallel()

	items := seqInts(95)

	first, err := Paginate(items, &PageRequest{Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("Paginate error: %v", err)
	}
	if first.TotalPages != 5 || first.Total != 95 || !first.HasNext || first.HasPrev {
		t.Fatalf("unexpected first page meta: %+v", first)
	}
	if len(first.Items) != 20 || first.Items[0] != 1 {
		t.Fatalf("unexpected first page items: %v", first.Items)
	}

	last, err := Paginate(items, &PageRequest{Page: 5, PageSize: 20})
	if err != nil {
		t.Fatalf("Paginate error: %v", err)
	}
	if len(last.Items) != 15 || last.Items[0] != 81 || last.HasNext || !last.HasPrev {
		t.Fatalf("unexpected last page: %+v", last)
	}

	beyond, err := Paginate(items, &PageRequest{Page: 9, PageSize: 20})
	if err != nil {
		t.Fatalf("Paginate error: %v", err)
	}
	if len(beyond.Items) != 0 || beyond.HasNext || !beyond.HasPrev {
		t.Fatalf("unexpected page beyond range: %+v", beyond)
	}
}

func TestPaginate_NoRequestReturnsEverything(t *testing.T) {
	t.Parallel()

	page, err := Paginate(seqInts(7), nil)
	if err != nil {
		t.Fatalf("Paginate error: %v", err)
	}
	if len(page.Items) != 7 || page.Total != 7 || page.TotalPages != 1 || page.HasNext {
		t.Fatalf("unexpected unpaged result: %+v", page)
	}

	empty, err := Paginate([]int{}, nil)
	if err != nil {
		t.Fatalf("Paginate error: %v", err)
	}
	if empty.TotalPages != 0 || empty.Total != 0 {
		t.Fatalf("unexpected empty result: %+v", empty)
	}
}

func TestPaginate_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	for _, req := range []PageRequest{
		{Page: 0, PageSize: 10},
		{Page: 1, PageSize: 0},
		{Page: 1, PageSize: 101},
	} {
		if _, err := Paginate(seqInts(3), &req); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected invalid input for %+v, got %v", req, err)
		}
	}
}

func TestPaginate_HugePageIsEmpty(t *testing.T) {
	t.Parallel()

	page, err := Paginate([]int{1, 2, 3}, &PageRequest{Page: math.MaxInt/2 + 2, PageSize: 2})
	if err != nil {
		t.Fatalf("Paginate error: %v", err)
	}
	if len(page.Items) != 0 || page.HasNext || !page.HasPrev || page.TotalPages != 2 {
		t.Fatalf("unexpected page far beyond range: %+v", page)
	}
}
