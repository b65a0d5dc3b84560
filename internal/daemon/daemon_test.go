package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"umservice/internal/batch"
	"umservice/internal/config"
	"umservice/internal/history"
	"umservice/internal/protocol"
	"umservice/internal/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.SocketPath = filepath.Join(dir, "um.sock")
	cfg.History.Path = filepath.Join(dir, "history.db")
	return &cfg
}

func instantConverter() batch.Converter {
	return batch.ConverterFunc(func(_ context.Context, task batch.FileTask, _ batch.Options) (batch.Result, error) {
		return batch.Result{InputPath: task.InputPath, Success: true}, nil
	})
}

func startTestDaemon(t *testing.T, cfg *config.Config, store *history.Store) *Daemon {
	t.Helper()
	manager := session.NewManager(session.Config{MaxWorkers: 2}, instantConverter(), nil)
	d, err := New(cfg, manager, store, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func call(t *testing.T, d *Daemon, msgType string, payload any) *protocol.Response {
	t.Helper()
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	resp := d.Handle(context.Background(), msg)
	if resp == nil {
		t.Fatal("nil response")
	}
	if resp.ID != msg.ID {
		t.Fatalf("response id mismatch: %q vs %q", resp.ID, msg.ID)
	}
	return resp
}

func TestStartRejectsSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	startTestDaemon(t, cfg, nil)

	manager := session.NewManager(session.Config{MaxWorkers: 1}, instantConverter(), nil)
	second, err := New(cfg, manager, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected lock conflict for second instance")
	}
}

func TestHandleSessionRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	d := startTestDaemon(t, cfg, nil)

	resp := call(t, d, protocol.TypeStartSession, nil)
	if !resp.Success || resp.Type != protocol.TypeSessionStarted {
		t.Fatalf("unexpected response: %#v", resp)
	}
	var started protocol.SessionStartedData
	if err := resp.DecodeData(&started); err != nil || started.SessionID == "" {
		t.Fatalf("bad session_started payload: %v %#v", err, started)
	}
	id := started.SessionID

	resp = call(t, d, protocol.TypeAddFiles, protocol.AddFilesData{
		SessionID: id,
		Files:     []batch.FileTask{{InputPath: "a.ncm"}, {InputPath: "b.qmc"}},
	})
	var addedData protocol.FilesAddedData
	if err := resp.DecodeData(&addedData); err != nil {
		t.Fatalf("decode files_added: %v", err)
	}
	if addedData.AddedCount != 2 || addedData.TotalFiles != 2 {
		t.Fatalf("unexpected files_added: %#v", addedData)
	}

	resp = call(t, d, protocol.TypeStartProcessing, protocol.StartProcessingData{SessionID: id})
	if !resp.Success || resp.Type != protocol.TypeProcessingStarted {
		t.Fatalf("unexpected response: %#v", resp)
	}

	deadline := time.Now().Add(5 * time.Second)
	var progress protocol.ProgressUpdateData
	for {
		resp = call(t, d, protocol.TypeGetProgress, protocol.SessionRefData{SessionID: id})
		if err := resp.DecodeData(&progress); err != nil {
			t.Fatalf("decode progress: %v", err)
		}
		status, err := session.ParseStatus(progress.Status)
		if err != nil {
			t.Fatalf("bad status %q", progress.Status)
		}
		if status.IsTerminal() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session never became terminal")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if progress.Result == nil || progress.Result.SuccessCount != 2 {
		t.Fatalf("unexpected terminal progress: %#v", progress)
	}

	resp = call(t, d, protocol.TypeEndSession, protocol.SessionRefData{SessionID: id})
	if !resp.Success || resp.Type != protocol.TypeSessionEnded {
		t.Fatalf("unexpected response: %#v", resp)
	}

	resp = call(t, d, protocol.TypeGetProgress, protocol.SessionRefData{SessionID: id})
	if resp.Success || protocol.ErrorCode(resp.Error) != session.CodeSessionNotFound {
		t.Fatalf("expected session_not_found, got %#v", resp)
	}
}

func TestHandleListSessions(t *testing.T) {
	d := startTestDaemon(t, testConfig(t), nil)

	resp := call(t, d, protocol.TypeListSessions, nil)
	var list protocol.SessionListData
	if err := resp.DecodeData(&list); err != nil {
		t.Fatalf("decode session list: %v", err)
	}
	if len(list.Sessions) != 0 {
		t.Fatalf("expected no sessions, got %d", len(list.Sessions))
	}

	var started protocol.SessionStartedData
	if err := call(t, d, protocol.TypeStartSession, nil).DecodeData(&started); err != nil {
		t.Fatalf("decode session id: %v", err)
	}

	resp = call(t, d, protocol.TypeListSessions, nil)
	if err := resp.DecodeData(&list); err != nil {
		t.Fatalf("decode session list: %v", err)
	}
	if len(list.Sessions) != 1 || list.Sessions[0].SessionID != started.SessionID {
		t.Fatalf("unexpected session list: %#v", list.Sessions)
	}
	if list.Sessions[0].Status != session.StatusIdle.String() {
		t.Fatalf("unexpected status %q", list.Sessions[0].Status)
	}
}

func TestHandleUnknownType(t *testing.T) {
	d := startTestDaemon(t, testConfig(t), nil)
	resp := call(t, d, "make_coffee", nil)
	if resp.Success || protocol.ErrorCode(resp.Error) != "unknown_message_type" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestHandlePing(t *testing.T) {
	d := startTestDaemon(t, testConfig(t), nil)
	resp := call(t, d, protocol.TypePing, nil)
	var pong protocol.PongData
	if err := resp.DecodeData(&pong); err != nil {
		t.Fatalf("decode pong: %v", err)
	}
	if pong.PID != os.Getpid() || pong.ActiveSessions != 0 {
		t.Fatalf("unexpected pong: %#v", pong)
	}
}

func TestHandleShutdownSignalsChannel(t *testing.T) {
	d := startTestDaemon(t, testConfig(t), nil)
	resp := call(t, d, protocol.TypeShutdown, nil)
	if !resp.Success || resp.Type != protocol.TypeShutdownScheduled {
		t.Fatalf("unexpected response: %#v", resp)
	}
	select {
	case <-d.ShutdownRequested():
	case <-time.After(time.Second):
		t.Fatal("shutdown channel never closed")
	}
	// A second shutdown request is harmless.
	if resp := call(t, d, protocol.TypeShutdown, nil); !resp.Success {
		t.Fatalf("repeat shutdown failed: %#v", resp)
	}
}

func TestFinishedBatchesLandInHistory(t *testing.T) {
	cfg := testConfig(t)
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer store.Close()
	d := startTestDaemon(t, cfg, store)

	resp := call(t, d, protocol.TypeStartSession, nil)
	var started protocol.SessionStartedData
	if err := resp.DecodeData(&started); err != nil {
		t.Fatalf("decode: %v", err)
	}
	call(t, d, protocol.TypeAddFiles, protocol.AddFilesData{
		SessionID: started.SessionID,
		Files:     []batch.FileTask{{InputPath: "a.ncm"}},
	})
	call(t, d, protocol.TypeStartProcessing, protocol.StartProcessingData{SessionID: started.SessionID})

	deadline := time.Now().Add(5 * time.Second)
	for {
		records, err := store.List(context.Background(), 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(records) == 1 {
			rec := records[0]
			if rec.SessionID != started.SessionID || rec.Mode != history.ModeSession {
				t.Fatalf("unexpected record: %#v", rec)
			}
			if rec.Status != session.StatusCompleted.String() || rec.TotalFiles != 1 {
				t.Fatalf("unexpected record: %#v", rec)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("batch never recorded in history")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
