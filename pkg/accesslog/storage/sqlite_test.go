package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"atrium-hq/vestibule/pkg/accesslog"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(&SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "access.db"),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		WALMode:      true,
		BusyTimeout:  time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	when := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &accesslog.Record{
		ID:            "rec-1",
		RequestID:     "req-1",
		Time:          when,
		Host:          "a.example.com",
		Port:          8443,
		Route:         "/api",
		Listener:      "127.0.0.1:8443",
		Method:        "GET",
		Path:          "/api/users",
		Query:         "page=2",
		Proto:         "HTTP/2.0",
		TLS:           true,
		RemoteIP:      "192.0.2.7",
		UserAgent:     "curl/8.0",
		Referer:       "https://a.example.com/",
		Status:        200,
		ResponseBytes: 1234,
		Duration:      42 * time.Millisecond,
	}
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := store.Query(ctx, &accesslog.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records", len(got))
	}

	g := got[0]
	if g.ID != "rec-1" || g.RequestID != "req-1" {
		t.Errorf("identity = (%q, %q)", g.ID, g.RequestID)
	}
	if !g.Time.Equal(when) {
		t.Errorf("Time = %v, want %v", g.Time, when)
	}
	if g.Host != "a.example.com" || g.Port != 8443 || g.Route != "/api" {
		t.Errorf("routing = (%q, %d, %q)", g.Host, g.Port, g.Route)
	}
	if !g.TLS || g.Proto != "HTTP/2.0" || g.Query != "page=2" {
		t.Errorf("request = (tls=%v, %q, %q)", g.TLS, g.Proto, g.Query)
	}
	if g.Status != 200 || g.ResponseBytes != 1234 || g.Duration != 42*time.Millisecond {
		t.Errorf("response = (%d, %d, %v)", g.Status, g.ResponseBytes, g.Duration)
	}
}

func TestSQLiteStoreFiltersAndPagination(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedRecords(t, store, base)

	got, err := store.Query(ctx, &accesslog.Query{Host: "b.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if g := ids(got); len(g) != 2 || g[0] != "r5" || g[1] != "r3" {
		t.Errorf("host filter = %v, want [r5 r3] newest first", g)
	}

	got, err = store.Query(ctx, &accesslog.Query{PathPrefix: "/api/"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("path prefix matched %d records, want 3", len(got))
	}

	got, err = store.Query(ctx, &accesslog.Query{StatusMin: 400, StatusMax: 499})
	if err != nil {
		t.Fatal(err)
	}
	if g := ids(got); len(g) != 1 || g[0] != "r4" {
		t.Errorf("status range = %v", g)
	}

	got, err = store.Query(ctx, &accesslog.Query{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if g := ids(got); len(g) != 2 || g[0] != "r3" || g[1] != "r2" {
		t.Errorf("page 2 = %v", g)
	}

	n, err := store.Count(ctx, &accesslog.Query{Method: "GET"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("Count(GET) = %d, want 4", n)
	}
}

func TestSQLiteStoreLikeEscaping(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	records := []*accesslog.Record{
		{ID: "plain", Time: time.Now(), Path: "/files/report.pdf", Status: 200},
		{ID: "percent", Time: time.Now(), Path: "/files/100%_done", Status: 200},
	}
	for _, rec := range records {
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	// A literal % in the prefix must not act as a wildcard.
	got, err := store.Query(ctx, &accesslog.Query{PathPrefix: "/files/100%"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "percent" {
		t.Errorf("got %v, want only the literal match", ids(got))
	}
}

func TestSQLiteStoreDeleteBefore(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedRecords(t, store, base)

	deleted, err := store.DeleteBefore(ctx, base.Add(2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	n, err := store.Count(ctx, &accesslog.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("remaining = %d, want 3", n)
	}
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.db")
	cfg := &SQLiteConfig{Path: path, MaxOpenConns: 2, MaxIdleConns: 1, WALMode: true, BusyTimeout: time.Second}

	store, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(context.Background(), &accesslog.Record{ID: "persist", Time: time.Now(), Status: 200}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// Records and schema survive a reopen.
	store, err = NewSQLiteStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	n, err := store.Count(context.Background(), &accesslog.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("records after reopen = %d, want 1", n)
	}
}
