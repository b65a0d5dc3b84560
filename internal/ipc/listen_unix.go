//go:build !windows

package ipc

import (
	"fmt"
	"net"
	"os"
	"time"
)

// listen binds the Unix socket, replacing a stale file from a previous run.
// The caller is expected to hold the daemon lock, so an existing socket can
// only be leftover state.
func listen(endpoint string) (net.Listener, error) {
	if err := os.RemoveAll(endpoint); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", endpoint)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(endpoint, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}
	return listener, nil
}

// dial connects to the Unix socket within the timeout.
func dial(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", endpoint, timeout)
}
