package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"umservice/internal/batch"
	"umservice/internal/convert"
)

func newTestManager(t *testing.T, cfg Config, conv batch.Converter) *Manager {
	t.Helper()
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 2
	}
	return NewManager(cfg, conv, nil)
}

func instantConverter() batch.Converter {
	return batch.ConverterFunc(func(_ context.Context, task batch.FileTask, _ batch.Options) (batch.Result, error) {
		return batch.Result{InputPath: task.InputPath, Success: true}, nil
	})
}

// gatedConverter blocks each task until a value arrives on release.
func gatedConverter(release <-chan struct{}) batch.Converter {
	return batch.ConverterFunc(func(ctx context.Context, task batch.FileTask, _ batch.Options) (batch.Result, error) {
		select {
		case <-release:
			return batch.Result{InputPath: task.InputPath, Success: true}, nil
		case <-ctx.Done():
			return batch.Result{InputPath: task.InputPath}, ctx.Err()
		}
	})
}

func waitTerminal(t *testing.T, m *Manager, id string) Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := m.Progress(id)
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		if snap.Status.IsTerminal() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session never reached a terminal status")
	return Snapshot{}
}

func TestStartSessionEnforcesLimit(t *testing.T) {
	m := newTestManager(t, Config{MaxSessions: 1}, instantConverter())

	if _, err := m.StartSession(); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	_, err := m.StartSession()
	if err == nil {
		t.Fatal("expected resource exhaustion")
	}
	if ErrorCode(err) != CodeResourceExhausted {
		t.Fatalf("unexpected code %q", ErrorCode(err))
	}
}

func TestAddFilesUnknownSession(t *testing.T) {
	m := newTestManager(t, Config{}, instantConverter())
	_, _, err := m.AddFiles("missing", []batch.FileTask{{InputPath: "a.ncm"}})
	if ErrorCode(err) != CodeSessionNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestAddFilesFiltersUnsupportedExtensions(t *testing.T) {
	m := newTestManager(t, Config{}, instantConverter())
	id, err := m.StartSession()
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	added, total, err := m.AddFiles(id, []batch.FileTask{
		{InputPath: "song.ncm"},
		{InputPath: "notes.txt"},
		{InputPath: "ghost.qmc"},
	})
	if err != nil {
		t.Fatalf("AddFiles: %v", err)
	}
	if added != 2 || total != 2 {
		t.Fatalf("added=%d total=%d, want 2/2", added, total)
	}
}

func TestAddFilesAccumulatesAcrossCalls(t *testing.T) {
	m := newTestManager(t, Config{}, instantConverter())
	id, _ := m.StartSession()

	if _, total, err := m.AddFiles(id, []batch.FileTask{{InputPath: "a.ncm"}}); err != nil || total != 1 {
		t.Fatalf("first AddFiles: total=%d err=%v", total, err)
	}
	if _, total, err := m.AddFiles(id, []batch.FileTask{{InputPath: "b.ncm"}, {InputPath: "a.ncm"}}); err != nil || total != 3 {
		t.Fatalf("second AddFiles: total=%d err=%v", total, err)
	}
}

func TestStartProcessingEmptyQueue(t *testing.T) {
	m := newTestManager(t, Config{}, instantConverter())
	id, _ := m.StartSession()

	_, err := m.StartProcessing(id, batch.Options{})
	if ErrorCode(err) != CodeEmptyQueue {
		t.Fatalf("unexpected error %v", err)
	}
	snap, err := m.Progress(id)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if snap.Status != StatusIdle {
		t.Fatalf("status = %q, want idle", snap.Status)
	}
}

func TestAddFilesRejectedWhileRunning(t *testing.T) {
	release := make(chan struct{})
	m := newTestManager(t, Config{}, gatedConverter(release))
	id, _ := m.StartSession()
	m.AddFiles(id, []batch.FileTask{{InputPath: "a.ncm"}})

	if _, err := m.StartProcessing(id, batch.Options{}); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	_, _, err := m.AddFiles(id, []batch.FileTask{{InputPath: "b.ncm"}})
	if ErrorCode(err) != CodeInvalidState {
		t.Fatalf("unexpected error %v", err)
	}

	close(release)
	waitTerminal(t, m, id)
}

func TestProcessingPartialSuccessScenario(t *testing.T) {
	dir := t.TempDir()
	good1 := filepath.Join(dir, "one.ncm")
	good2 := filepath.Join(dir, "two.ncm")
	for _, path := range []string{good1, good2} {
		if err := os.WriteFile(path, []byte{0x10, 0x20, 0x30, 0x40}, 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	missing := filepath.Join(dir, "ghost.ncm")

	m := newTestManager(t, Config{}, convert.NewProcessor(dir, nil))
	id, _ := m.StartSession()
	added, _, err := m.AddFiles(id, []batch.FileTask{
		{InputPath: good1}, {InputPath: good2}, {InputPath: missing},
	})
	if err != nil || added != 3 {
		t.Fatalf("AddFiles: added=%d err=%v", added, err)
	}

	count, err := m.StartProcessing(id, batch.Options{OverwriteOutput: true, NamingFormat: "auto"})
	if err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if count != 3 {
		t.Fatalf("file count = %d, want 3", count)
	}

	snap := waitTerminal(t, m, id)
	if snap.Status != StatusPartialSuccess {
		t.Fatalf("status = %q, want partial_success", snap.Status)
	}
	if snap.Result == nil {
		t.Fatal("terminal snapshot missing result")
	}
	if snap.Result.SuccessCount != 2 || snap.Result.FailedCount != 1 {
		t.Fatalf("unexpected counts: %#v", snap.Result)
	}
	for _, result := range snap.Result.Results {
		if result.InputPath == missing && result.Error == "" {
			t.Fatal("failed task should carry an error")
		}
	}
}

func TestProgressHidesResultWhileRunning(t *testing.T) {
	release := make(chan struct{})
	m := newTestManager(t, Config{MaxWorkers: 1}, gatedConverter(release))
	id, _ := m.StartSession()
	m.AddFiles(id, []batch.FileTask{{InputPath: "a.ncm"}})
	m.StartProcessing(id, batch.Options{})

	snap, err := m.Progress(id)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if snap.Status != StatusRunning || snap.Result != nil {
		t.Fatalf("unexpected running snapshot: %#v", snap)
	}

	close(release)
	snap = waitTerminal(t, m, id)
	if snap.Status != StatusCompleted || snap.Result == nil {
		t.Fatalf("unexpected terminal snapshot: %#v", snap)
	}
	if snap.ProcessedFiles != snap.TotalFiles {
		t.Fatalf("processed %d != total %d", snap.ProcessedFiles, snap.TotalFiles)
	}
}

func TestStopProcessingYieldsPartialResults(t *testing.T) {
	release := make(chan struct{}, 3)
	m := newTestManager(t, Config{MaxWorkers: 1}, gatedConverter(release))
	id, _ := m.StartSession()
	m.AddFiles(id, []batch.FileTask{
		{InputPath: "a.ncm"}, {InputPath: "b.ncm"}, {InputPath: "c.ncm"},
	})
	m.StartProcessing(id, batch.Options{})

	// Let the first task through, then request a stop before the rest run.
	release <- struct{}{}
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := m.Progress(id)
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		if snap.ProcessedFiles >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first task never completed")
		}
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := m.StopProcessing(id); err != nil {
		t.Fatalf("StopProcessing: %v", err)
	}

	snap := waitTerminal(t, m, id)
	if snap.Status != StatusPartialSuccess {
		t.Fatalf("status = %q, want partial_success", snap.Status)
	}
	if snap.Result.SuccessCount < 1 {
		t.Fatalf("expected at least one success, got %#v", snap.Result)
	}
}

func TestStopProcessingRequiresRunning(t *testing.T) {
	m := newTestManager(t, Config{}, instantConverter())
	id, _ := m.StartSession()
	_, err := m.StopProcessing(id)
	if ErrorCode(err) != CodeInvalidState {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestEndSessionIsIdempotent(t *testing.T) {
	m := newTestManager(t, Config{}, instantConverter())
	id, _ := m.StartSession()

	if err := m.EndSession(id); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if err := m.EndSession(id); err != nil {
		t.Fatalf("second EndSession: %v", err)
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d, want 0", m.ActiveCount())
	}
	if _, err := m.Progress(id); ErrorCode(err) != CodeSessionNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestOnFinishedHookObservesOutcome(t *testing.T) {
	m := newTestManager(t, Config{}, instantConverter())
	outcomes := make(chan Outcome, 1)
	m.OnFinished = func(o Outcome) { outcomes <- o }

	id, _ := m.StartSession()
	m.AddFiles(id, []batch.FileTask{{InputPath: "a.ncm"}, {InputPath: "b.ncm"}})
	m.StartProcessing(id, batch.Options{})

	select {
	case outcome := <-outcomes:
		if outcome.SessionID != id || outcome.Response == nil {
			t.Fatalf("unexpected outcome: %#v", outcome)
		}
		if outcome.Response.TotalFiles != 2 {
			t.Fatalf("unexpected total: %d", outcome.Response.TotalFiles)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnFinished never fired")
	}
}

func TestReapReclaimsIdleSessionsOnly(t *testing.T) {
	release := make(chan struct{})
	m := newTestManager(t, Config{IdleTimeout: time.Minute, SweepInterval: time.Minute}, gatedConverter(release))

	idleID, _ := m.StartSession()
	runningID, _ := m.StartSession()
	m.AddFiles(runningID, []batch.FileTask{{InputPath: "a.ncm"}})
	m.StartProcessing(runningID, batch.Options{})

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	m.reap()

	if _, err := m.Progress(idleID); ErrorCode(err) != CodeSessionNotFound {
		t.Fatalf("idle session should be reclaimed, got %v", err)
	}
	if _, err := m.Progress(runningID); err != nil {
		t.Fatalf("running session must survive reaping: %v", err)
	}

	m.now = time.Now
	close(release)
	waitTerminal(t, m, runningID)
}

func TestStatusParsing(t *testing.T) {
	for _, value := range []string{"idle", "running", "completed", "partial_success", "error"} {
		status, err := ParseStatus(value)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", value, err)
		}
		if status.String() != value {
			t.Fatalf("round trip mismatch for %q", value)
		}
	}
	if _, err := ParseStatus("stalled"); err == nil {
		t.Fatal("expected error for unknown status")
	}

	terminal := map[Status]bool{
		StatusIdle: false, StatusRunning: false,
		StatusCompleted: true, StatusPartialSuccess: true, StatusError: true,
	}
	for status, want := range terminal {
		if status.IsTerminal() != want {
			t.Fatalf("IsTerminal(%q) = %v, want %v", status, !want, want)
		}
	}
}

func TestErrorCodeFallsBackToInternal(t *testing.T) {
	if code := ErrorCode(errors.New("boom")); code != CodeInternal {
		t.Fatalf("unexpected code %q", code)
	}
}
