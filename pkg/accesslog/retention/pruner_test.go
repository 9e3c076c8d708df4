package retention

import (
	"context"
	"testing"
	"time"

	"atrium-hq/vestibule/pkg/accesslog"
	"atrium-hq/vestibule/pkg/accesslog/storage"
)

func insertAged(t *testing.T, store accesslog.Store, id string, age time.Duration) {
	t.Helper()
	err := store.Insert(context.Background(), &accesslog.Record{
		ID:     id,
		Time:   time.Now().Add(-age),
		Status: 200,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestPrunerByAge(t *testing.T) {
	store := storage.NewMemoryStore(0)
	insertAged(t, store, "ancient", 40*24*time.Hour)
	insertAged(t, store, "old", 31*24*time.Hour)
	insertAged(t, store, "recent", 1*24*time.Hour)
	insertAged(t, store, "fresh", time.Hour)

	pruner := NewPruner(store, &Config{RetentionDays: 30})
	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if got := store.Len(); got != 2 {
		t.Errorf("remaining = %d, want 2", got)
	}
}

func TestPrunerByCount(t *testing.T) {
	store := storage.NewMemoryStore(0)
	for i := 0; i < 10; i++ {
		insertAged(t, store, string(rune('a'+i)), time.Duration(10-i)*time.Minute)
	}

	pruner := NewPruner(store, &Config{RetentionDays: 0, MaxRecords: 4})
	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 6 {
		t.Errorf("deleted = %d, want 6", deleted)
	}

	remaining, err := store.Query(context.Background(), &accesslog.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 4 {
		t.Fatalf("remaining = %d, want 4", len(remaining))
	}
	// The newest four survive.
	if remaining[0].ID != "j" || remaining[3].ID != "g" {
		t.Errorf("kept %q..%q, want the newest records", remaining[0].ID, remaining[3].ID)
	}
}

func TestPrunerNoPolicyKeepsEverything(t *testing.T) {
	store := storage.NewMemoryStore(0)
	insertAged(t, store, "ancient", 1000*24*time.Hour)

	pruner := NewPruner(store, &Config{RetentionDays: 0, MaxRecords: 0})
	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0 with no policy", deleted)
	}
	if got := store.Len(); got != 1 {
		t.Errorf("remaining = %d", got)
	}
}

func TestPrunerCountUnderCap(t *testing.T) {
	store := storage.NewMemoryStore(0)
	insertAged(t, store, "a", time.Minute)
	insertAged(t, store, "b", time.Second)

	pruner := NewPruner(store, &Config{MaxRecords: 10})
	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0 under the cap", deleted)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	store := storage.NewMemoryStore(0)
	pruner := NewPruner(store, &Config{RetentionDays: 30, PruneSchedule: "0 3 * * *"})

	sched := pruner.Scheduler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !sched.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	if next := sched.NextRun(); next == nil || next.Before(time.Now()) {
		t.Errorf("NextRun() = %v, want a future time", next)
	}

	sched.Stop()
	if sched.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	sched.Stop() // idempotent
}

func TestSchedulerRejectsBadExpression(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStore(0), &Config{PruneSchedule: "not a cron line"})
	if err := pruner.Scheduler().Start(context.Background()); err == nil {
		t.Fatal("Start with an invalid schedule = nil error")
	}
}

func TestSchedulerEmptyScheduleNoop(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStore(0), &Config{PruneSchedule: ""})
	sched := pruner.Scheduler()
	if err := sched.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sched.IsRunning() {
		t.Error("scheduler running with no schedule configured")
	}
}
