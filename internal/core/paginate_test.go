package core

import (
	"errors"
	"math"
	"testing"
)

func TestPaginate(t *testing.T) {
	list := sampleList()
	cases := []struct {
		size, page   int
		want         string
		pages, total int
	}{
		{2, 1, "12", 3, 5},
		{2, 2, "34", 3, 5},
		{2, 3, "5", 3, 5},
		{5, 1, "12345", 1, 5},
		{10, 1, "12345", 1, 5},
		{2, 4, "", 3, 5},
		{2, 0, "", 3, 5},
	}
	for _, tc := range cases {
		p, err := Paginate(list, tc.size, tc.page)
		if err != nil {
			t.Fatalf("size %d page %d: %v", tc.size, tc.page, err)
		}
		if ids(p.Items) != tc.want || p.TotalPages != tc.pages || p.TotalItems != tc.total || p.CurrentPage != tc.page {
			t.Fatalf("size %d page %d: got items %q pages %d total %d current %d", tc.size, tc.page, ids(p.Items), p.TotalPages, p.TotalItems, p.CurrentPage)
		}
	}
}

func TestPaginateHugePageSize(t *testing.T) {
	list := sampleList()
	p, err := Paginate(list, math.MaxInt, 1)
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalPages != 1 || ids(p.Items) != "12345" {
		t.Fatalf("got pages %d items %q, want 1 page with every item", p.TotalPages, ids(p.Items))
	}
	p, err = Paginate(list, math.MaxInt, 2)
	if err != nil || len(p.Items) != 0 {
		t.Fatalf("page 2: items %d err %v", len(p.Items), err)
	}
}

func TestPaginateEmpty(t *testing.T) {
	p, err := Paginate(nil, 10, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Items == nil || len(p.Items) != 0 || p.TotalPages != 0 || p.CurrentPage != 1 {
		t.Fatalf("expected {[] 0 1}, got %+v", p)
	}
}

func TestPaginateInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := Paginate(sampleList(), size, 1); !errors.Is(err, ErrInvalidPageSize) {
			t.Fatalf("size %d: expected ErrInvalidPageSize, got %v", size, err)
		}
	}
}

func TestPagesCoverFilteredList(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		filtered := ApplyFilters(randomTransactions(seed, 53), Criteria{Type: ptr("expense")})
		for _, size := range []int{1, 3, 10, 100} {
			first, err := Paginate(filtered, size, 1)
			if err != nil {
				t.Fatalf("paginate: %v", err)
			}
			var joined []Transaction
			for n := 1; n <= first.TotalPages; n++ {
				p, _ := Paginate(filtered, size, n)
				joined = append(joined, p.Items...)
			}
			if ids(joined) != ids(filtered) {
				t.Fatalf("seed %d size %d: pages do not reproduce the list", seed, size)
			}
		}
	}
}

func TestPaginateDoesNotAlias(t *testing.T) {
	list := sampleList()
	p, _ := Paginate(list, 2, 1)
	p.Items[0].ID = "changed"
	if list[0].ID != "1" {
		t.Fatalf("page items must not alias the source list")
	}
}
