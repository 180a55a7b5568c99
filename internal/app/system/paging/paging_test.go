package paging

import (
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		query string
		want  Page
	}{
		{"", Page{Number: 1, Limit: DefaultLimit}},
		{"?page=3", Page{Number: 3, Limit: DefaultLimit}},
		{"?page=2&limit=5", Page{Number: 2, Limit: 5}},
		{"?page=0&limit=-1", Page{Number: 1, Limit: DefaultLimit}},
		{"?page=abc&limit=xyz", Page{Number: 1, Limit: DefaultLimit}},
		{"?limit=5000", Page{Number: 1, Limit: MaxLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := ParsePage(httptest.NewRequest("GET", "/api/camps"+tt.query, nil), DefaultLimit)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParsePage mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPage_SkipAndTotalPages(t *testing.T) {
	p := Page{Number: 3, Limit: 20}
	if p.Skip() != 40 {
		t.Errorf("Skip() = %d, want 40", p.Skip())
	}
	cases := map[int64]int{0: 1, 1: 1, 20: 1, 21: 2, 100: 5, 101: 6}
	for total, want := range cases {
		if got := p.TotalPages(total); got != want {
			t.Errorf("TotalPages(%d) = %d, want %d", total, got, want)
		}
	}

	find := p.ApplyToFind(options.Find())
	if find.Skip == nil || *find.Skip != 40 || find.Limit == nil || *find.Limit != 20 {
		t.Errorf("ApplyToFind set skip=%v limit=%v", find.Skip, find.Limit)
	}
}

func TestTrimPage(t *testing.T) {
	tests := []struct {
		name       string
		rows       []int
		before     string
		after      string
		wantLen    int
		wantResult Result
	}{
		{"first page, no extra", []int{1, 2, 3}, "", "", 3, Result{}},
		{"first page, extra", make([]int, PageSize+1), "", "", PageSize, Result{HasNext: true}},
		{"forward with extra", make([]int, PageSize+1), "", "c", PageSize, Result{HasPrev: true, HasNext: true}},
		{"forward without extra", []int{1, 2}, "", "c", 2, Result{HasPrev: true}},
		{"backward with extra", make([]int, PageSize+1), "c", "", PageSize, Result{HasPrev: true, HasNext: true}},
		{"backward without extra", []int{1, 2}, "c", "", 2, Result{HasNext: true}},
		{"empty", []int{}, "", "", 0, Result{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := tt.rows
			got := TrimPage(&rows, tt.before, tt.after)
			if len(rows) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(rows), tt.wantLen)
			}
			if got != tt.wantResult {
				t.Errorf("TrimPage() = %+v, want %+v", got, tt.wantResult)
			}
		})
	}
}

func TestTrimPage_BackwardDropsOldest(t *testing.T) {
	rows := make([]int, PageSize+1)
	for i := range rows {
		rows[i] = i
	}
	TrimPage(&rows, "c", "")
	if rows[0] != 1 {
		t.Errorf("expected first element dropped, got rows[0]=%d", rows[0])
	}
}

func TestConfigureKeyset(t *testing.T) {
	tests := []struct {
		name      string
		before    string
		after     string
		wantDir   Direction
		wantOrder int
	}{
		{"first page", "", "", Forward, 1},
		{"after cursor", "", "somecursor", Forward, 1},
		{"before cursor", "somecursor", "", Backward, -1},
		{"before wins", "b", "a", Backward, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConfigureKeyset(tt.before, tt.after)
			if got.Direction != tt.wantDir || got.SortOrder != tt.wantOrder {
				t.Errorf("ConfigureKeyset() = %+v", got)
			}
		})
	}
}

func TestKeysetRoundTrip(t *testing.T) {
	type item struct {
		Key string
		ID  primitive.ObjectID
	}
	rows := []item{{"alpha", primitive.NewObjectID()}, {"omega", primitive.NewObjectID()}}
	prev, next := BuildCursors(rows,
		func(i item) string { return i.Key },
		func(i item) primitive.ObjectID { return i.ID },
	)
	if prev == "" || next == "" || prev == next {
		t.Fatalf("BuildCursors() = %q, %q", prev, next)
	}

	cfg := ConfigureKeyset("", next)
	if cfg.Cursor == nil {
		t.Fatal("expected cursor to decode")
	}
	if cfg.Cursor.ID != rows[1].ID {
		t.Errorf("cursor id = %s, want %s", cfg.Cursor.ID.Hex(), rows[1].ID.Hex())
	}
	if cfg.KeysetWindow("name_ci") == nil {
		t.Error("expected a window filter when a cursor is set")
	}
	if ConfigureKeyset("", "").KeysetWindow("name_ci") != nil {
		t.Error("expected no window on the first page")
	}

	if p, n := BuildCursors([]item{}, func(i item) string { return i.Key }, func(i item) primitive.ObjectID { return i.ID }); p != "" || n != "" {
		t.Error("expected empty cursors for empty rows")
	}
}

func TestReverse(t *testing.T) {
	rows := []int{1, 2, 3, 4}
	Reverse(rows)
	if diff := cmp.Diff([]int{4, 3, 2, 1}, rows); diff != "" {
		t.Errorf("Reverse mismatch (-want +got):\n%s", diff)
	}
}
