package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	records := []Record{
		{SessionID: "s-1", Mode: ModeSession, Status: "completed", TotalFiles: 3, SuccessCount: 3, Duration: 1200 * time.Millisecond, CreatedAt: base},
		{SessionID: "", Mode: ModeOneShot, Status: "partial_success", TotalFiles: 2, SuccessCount: 1, FailedCount: 1, Duration: 300 * time.Millisecond, CreatedAt: base.Add(time.Hour)},
	}
	for _, rec := range records {
		if _, err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Mode != ModeOneShot {
		t.Fatalf("expected newest first, got %#v", got[0])
	}
	if got[1].SessionID != "s-1" || got[1].SuccessCount != 3 {
		t.Fatalf("unexpected record: %#v", got[1])
	}
	if got[0].Duration != 300*time.Millisecond {
		t.Fatalf("duration round trip failed: %v", got[0].Duration)
	}
	if !got[1].CreatedAt.Equal(base) {
		t.Fatalf("created_at round trip failed: %v", got[1].CreatedAt)
	}
}

func TestListHonorsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := Record{
			Mode:      ModeSession,
			Status:    "completed",
			CreatedAt: time.Date(2026, 8, 1, i, 0, 0, 0, time.UTC),
		}
		if _, err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
}

func TestPruneRemovesOldRecords(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	old := Record{Mode: ModeSession, Status: "completed", CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := Record{Mode: ModeSession, Status: "completed", CreatedAt: time.Now()}
	for _, rec := range []Record{old, fresh} {
		if _, err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	pruned, err := store.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("pruned %d records, want 1", pruned)
	}

	got, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 surviving record, got %d", len(got))
	}
}

func TestOpenIsReentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := first.Append(context.Background(), Record{Mode: ModeSession, Status: "completed"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, err := second.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List after reopen: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected record to survive reopen, got %d", len(got))
	}
}
