package daemonctl

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"umservice/internal/ipc"
	"umservice/internal/protocol"
)

type pongHandler struct{}

func (pongHandler) Handle(_ context.Context, msg *protocol.Message) *protocol.Response {
	if msg.Type == protocol.TypePing {
		resp, _ := protocol.Success(msg.ID, protocol.TypePong, protocol.PongData{PID: 99})
		return resp
	}
	return protocol.Failure(msg.ID, "unknown_message_type", msg.Type)
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch("  ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable path")
	}
}

func TestWaitForClientTimesOut(t *testing.T) {
	endpoint := filepath.Join(t.TempDir(), "missing.sock")
	start := time.Now()
	_, err := WaitForClient(endpoint, 300*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) < 300*time.Millisecond {
		t.Fatal("returned before the deadline")
	}
}

func TestWaitForClientConnectsToLiveService(t *testing.T) {
	endpoint := filepath.Join(t.TempDir(), "um.sock")
	srv, err := ipc.NewServer(context.Background(), endpoint, pongHandler{}, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Serve()
	defer srv.Close()

	client, err := WaitForClient(endpoint, 2*time.Second)
	if err != nil {
		t.Fatalf("WaitForClient: %v", err)
	}
	defer client.Close()
}

func TestProcessInfo(t *testing.T) {
	endpoint := filepath.Join(t.TempDir(), "um.sock")

	running, _, err := ProcessInfo(endpoint)
	if err != nil || running {
		t.Fatalf("expected not running, got running=%v err=%v", running, err)
	}

	srv, err := ipc.NewServer(context.Background(), endpoint, pongHandler{}, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Serve()
	defer srv.Close()

	running, pid, err := ProcessInfo(endpoint)
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if !running || pid != 99 {
		t.Fatalf("unexpected info: running=%v pid=%d", running, pid)
	}
}

func TestWaitForShutdownReturnsWhenEndpointGone(t *testing.T) {
	endpoint := filepath.Join(t.TempDir(), "gone.sock")
	if err := WaitForShutdown(endpoint, time.Second); err != nil {
		t.Fatalf("WaitForShutdown: %v", err)
	}
}

func TestRequestShutdownWithoutService(t *testing.T) {
	endpoint := filepath.Join(t.TempDir(), "missing.sock")
	if err := RequestShutdown(endpoint, time.Second); err != ErrServiceNotRunning {
		t.Fatalf("expected ErrServiceNotRunning, got %v", err)
	}
}
