package api

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"umservice/internal/batch"
	"umservice/internal/config"
	"umservice/internal/convert"
	"umservice/internal/daemon"
	"umservice/internal/history"
	"umservice/internal/ipc"
	"umservice/internal/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.SocketPath = filepath.Join(dir, "um.sock")
	cfg.History.Enabled = false
	cfg.History.Path = filepath.Join(dir, "history.db")
	cfg.Client.ConnectTimeoutMillis = 100
	cfg.Client.PollIntervalMillis = 5
	cfg.Client.PerFileTimeoutSecs = 30
	return &cfg
}

func writeInputs(t *testing.T, dir string, names ...string) []batch.FileTask {
	t.Helper()
	tasks := make([]batch.FileTask, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte{0x01, 0x02, 0x03, 0x04}, 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		tasks = append(tasks, batch.FileTask{InputPath: path})
	}
	return tasks
}

func startService(t *testing.T, cfg *config.Config, store *history.Store) {
	t.Helper()
	startServiceWith(t, cfg, store, convert.NewProcessor("", nil))
}

func startServiceWith(t *testing.T, cfg *config.Config, store *history.Store, converter batch.Converter) {
	t.Helper()
	manager := session.NewManager(session.Config{MaxWorkers: 2}, converter, nil)
	d, err := daemon.New(cfg, manager, store, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	srv, err := ipc.NewServer(ctx, cfg.Endpoint(), d, nil)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
}

func TestRunBatchOneShotBelowThreshold(t *testing.T) {
	cfg := testConfig(t)
	cfg.Client.SessionMinBatch = 5

	inputDir := t.TempDir()
	files := writeInputs(t, inputDir, "a.ncm", "b.qmc")

	runner := NewRunner(cfg, "", nil)
	outcome, err := runner.RunBatch(context.Background(), files, batch.Options{}, nil)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if outcome.Mode != ModeOneShot {
		t.Fatalf("mode = %q, want oneshot", outcome.Mode)
	}
	if !outcome.Response.Success || outcome.Response.SuccessCount != 2 {
		t.Fatalf("unexpected response: %#v", outcome.Response)
	}
}

func TestRunBatchFallsBackWhenServiceUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Client.SessionMinBatch = 1

	inputDir := t.TempDir()
	files := writeInputs(t, inputDir, "a.ncm")

	runner := NewRunner(cfg, "", nil)
	outcome, err := runner.RunBatch(context.Background(), files, batch.Options{}, nil)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if outcome.Mode != ModeOneShot {
		t.Fatalf("mode = %q, want oneshot fallback", outcome.Mode)
	}
	if outcome.Response.SuccessCount != 1 {
		t.Fatalf("unexpected response: %#v", outcome.Response)
	}
}

func TestRunBatchUsesSessionWhenServiceAvailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Client.SessionMinBatch = 1
	startService(t, cfg, nil)

	inputDir := t.TempDir()
	files := writeInputs(t, inputDir, "a.ncm", "b.ncm", "c.kgm")

	var lastProcessed int
	runner := NewRunner(cfg, "", nil)
	outcome, err := runner.RunBatch(context.Background(), files, batch.Options{}, func(processed, total int) {
		if processed < lastProcessed {
			t.Errorf("progress went backwards: %d after %d", processed, lastProcessed)
		}
		lastProcessed = processed
		if total != 3 {
			t.Errorf("unexpected total %d", total)
		}
	})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if outcome.Mode != ModeSession {
		t.Fatalf("mode = %q, want session", outcome.Mode)
	}
	if outcome.SessionID == "" {
		t.Fatal("missing session id")
	}
	if outcome.Response.SuccessCount != 3 || outcome.Response.FailedCount != 0 {
		t.Fatalf("unexpected response: %#v", outcome.Response)
	}
	for _, result := range outcome.Response.Results {
		if result.OutputPath == "" {
			t.Fatalf("result missing output path: %#v", result)
		}
	}
}

func TestRunBatchRecordsOneShotHistory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Client.SessionMinBatch = 5
	cfg.History.Enabled = true

	inputDir := t.TempDir()
	files := writeInputs(t, inputDir, "a.ncm")

	runner := NewRunner(cfg, "", nil)
	if _, err := runner.RunBatch(context.Background(), files, batch.Options{}, nil); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer store.Close()
	records, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].Mode != history.ModeOneShot {
		t.Fatalf("unexpected history: %#v", records)
	}
	if records[0].Status != session.StatusCompleted.String() {
		t.Fatalf("unexpected status %q", records[0].Status)
	}
}

func TestRunBatchRejectsEmptyFileList(t *testing.T) {
	runner := NewRunner(testConfig(t), "", nil)
	if _, err := runner.RunBatch(context.Background(), nil, batch.Options{}, nil); err == nil {
		t.Fatal("expected error for empty file list")
	}
}

// A zero time budget trips the cooperative stop path: the poller requests a
// stop and still returns the aggregated (all-canceled) result.
func TestRunBatchTimeoutRequestsStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Client.SessionMinBatch = 1
	cfg.Client.PerFileTimeoutSecs = 0

	slow := batch.ConverterFunc(func(ctx context.Context, task batch.FileTask, _ batch.Options) (batch.Result, error) {
		select {
		case <-time.After(30 * time.Second):
			return batch.Result{InputPath: task.InputPath, Success: true}, nil
		case <-ctx.Done():
			return batch.Result{InputPath: task.InputPath}, ctx.Err()
		}
	})
	startServiceWith(t, cfg, nil, slow)

	inputDir := t.TempDir()
	files := writeInputs(t, inputDir, "a.ncm", "b.ncm")

	runner := NewRunner(cfg, "", nil)
	outcome, err := runner.RunBatch(context.Background(), files, batch.Options{}, nil)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if outcome.Mode != ModeSession {
		t.Fatalf("mode = %q, want session", outcome.Mode)
	}
	if outcome.Response.FailedCount != 2 {
		t.Fatalf("expected all tasks canceled, got %#v", outcome.Response)
	}
}
