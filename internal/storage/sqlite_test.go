package storage

import (
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) == 0 || len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	for _, idx := range []string{"idx_sync_runs_created", "idx_sync_runs_operation"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found in sqlite_master", idx)
		}
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)

	want := Run{
		ID:        "run-1",
		CreatedAt: time.Date(2026, 10, 1, 12, 0, 0, 123, time.UTC),
		Operation: OpPush,
		Status:    StatusOK,
		GistID:    "g0001",
		SyncID:    "sync-1",
		Detail:    "updated",
	}
	if err := s.SaveRun(want); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got != want {
		t.Errorf("GetRun = %+v, want %+v", got, want)
	}

	if _, err := s.GetRun("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSaveRun_RequiresID(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveRun(Run{Operation: OpPush}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		r := Run{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Hour), Operation: OpPull, Status: StatusOK}
		if err := s.SaveRun(r); err != nil {
			t.Fatalf("SaveRun(%s): %v", id, err)
		}
	}

	runs, err := s.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d, want 2", len(runs))
	}
	if runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("order = %s,%s want c,b", runs[0].ID, runs[1].ID)
	}
}

func TestLastSuccessful(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.LastSuccessful(OpPush); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty journal error = %v, want ErrNotFound", err)
	}

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	runs := []Run{
		{ID: "1", CreatedAt: base, Operation: OpPush, Status: StatusOK},
		{ID: "2", CreatedAt: base.Add(time.Minute), Operation: OpPush, Status: StatusFailed},
		{ID: "3", CreatedAt: base.Add(2 * time.Minute), Operation: OpPull, Status: StatusOK},
	}
	for _, r := range runs {
		if err := s.SaveRun(r); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	got, err := s.LastSuccessful(OpPush)
	if err != nil {
		t.Fatalf("LastSuccessful: %v", err)
	}
	if got.ID != "1" {
		t.Errorf("ID = %q, want 1", got.ID)
	}
}
