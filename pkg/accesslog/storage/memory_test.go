package storage

import (
	"context"
	"testing"
	"time"

	"atrium-hq/vestibule/pkg/accesslog"
)

func seedRecords(t *testing.T, store accesslog.Store, base time.Time) {
	t.Helper()
	records := []*accesslog.Record{
		{ID: "r1", Time: base, Host: "a.example.com", Method: "GET", Path: "/index.html", Status: 200},
		{ID: "r2", Time: base.Add(1 * time.Minute), Host: "a.example.com", Method: "GET", Path: "/api/users", Status: 200},
		{ID: "r3", Time: base.Add(2 * time.Minute), Host: "b.example.com", Method: "POST", Path: "/api/users", Status: 201},
		{ID: "r4", Time: base.Add(3 * time.Minute), Host: "a.example.com", Method: "GET", Path: "/missing", Status: 404},
		{ID: "r5", Time: base.Add(4 * time.Minute), Host: "b.example.com", Method: "GET", Path: "/api/items", Status: 500},
	}
	for _, rec := range records {
		if err := store.Insert(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}
}

func ids(records []*accesslog.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestMemoryStoreQueryFilters(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(0)
	seedRecords(t, store, base)

	tests := []struct {
		name  string
		query accesslog.Query
		want  []string
	}{
		{"all newest first", accesslog.Query{}, []string{"r5", "r4", "r3", "r2", "r1"}},
		{"by host", accesslog.Query{Host: "b.example.com"}, []string{"r5", "r3"}},
		{"by method", accesslog.Query{Method: "POST"}, []string{"r3"}},
		{"by path prefix", accesslog.Query{PathPrefix: "/api/"}, []string{"r5", "r3", "r2"}},
		{"by exact status", accesslog.Query{Status: 404}, []string{"r4"}},
		{"by status range", accesslog.Query{StatusMin: 400, StatusMax: 499}, []string{"r4"}},
		{"errors and up", accesslog.Query{StatusMin: 400}, []string{"r5", "r4"}},
		{"combined", accesslog.Query{Host: "a.example.com", Method: "GET", PathPrefix: "/api"}, []string{"r2"}},
		{"no match", accesslog.Query{Host: "c.example.com"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(context.Background(), &tt.query)
			if err != nil {
				t.Fatal(err)
			}
			gotIDs := ids(got)
			if len(gotIDs) != len(tt.want) {
				t.Fatalf("got %v, want %v", gotIDs, tt.want)
			}
			for i := range tt.want {
				if gotIDs[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", gotIDs, tt.want)
				}
			}
		})
	}
}

func TestMemoryStoreTimeRange(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(0)
	seedRecords(t, store, base)

	since := base.Add(1 * time.Minute)
	until := base.Add(3 * time.Minute)
	got, err := store.Query(context.Background(), &accesslog.Query{Since: &since, Until: &until})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"r4", "r3", "r2"}
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("got %v, want %v (bounds inclusive)", gotIDs, want)
	}
}

func TestMemoryStorePagination(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(0)
	seedRecords(t, store, base)

	got, err := store.Query(context.Background(), &accesslog.Query{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if g := ids(got); len(g) != 2 || g[0] != "r5" || g[1] != "r4" {
		t.Errorf("limit 2 = %v", g)
	}

	got, err = store.Query(context.Background(), &accesslog.Query{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if g := ids(got); len(g) != 2 || g[0] != "r3" || g[1] != "r2" {
		t.Errorf("limit 2 offset 2 = %v", g)
	}

	got, err = store.Query(context.Background(), &accesslog.Query{Offset: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("offset past end returned %d records", len(got))
	}
}

func TestMemoryStoreCount(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(0)
	seedRecords(t, store, base)

	n, err := store.Count(context.Background(), &accesslog.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("Count = %d, want 5", n)
	}

	n, err = store.Count(context.Background(), &accesslog.Query{StatusMin: 400})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Count(status>=400) = %d, want 2", n)
	}
}

func TestMemoryStoreDeleteBefore(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(0)
	seedRecords(t, store, base)

	deleted, err := store.DeleteBefore(context.Background(), base.Add(2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2 (cutoff exclusive of the cutoff instant)", deleted)
	}
	if got := store.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
}

func TestMemoryStoreEviction(t *testing.T) {
	store := NewMemoryStore(3)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := store.Insert(context.Background(), &accesslog.Record{
			ID:   string(rune('a' + i)),
			Time: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	if got := store.Len(); got != 3 {
		t.Fatalf("Len = %d, want bounded at 3", got)
	}
	got, err := store.Query(context.Background(), &accesslog.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if g := ids(got); g[0] != "e" || g[2] != "c" {
		t.Errorf("kept %v, want the newest three", g)
	}
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	store := NewMemoryStore(0)
	rec := &accesslog.Record{ID: "x", Time: time.Now(), Status: 200}
	if err := store.Insert(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	rec.Status = 500 // caller mutation must not reach the store

	got, err := store.Query(context.Background(), &accesslog.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Status != 200 {
		t.Errorf("stored Status = %d, want the value at insert time", got[0].Status)
	}
}
