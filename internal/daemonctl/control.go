package daemonctl

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"umservice/internal/ipc"
)

// ErrServiceNotRunning indicates the service endpoint is unreachable.
var ErrServiceNotRunning = errors.New("service not running")

// LaunchOptions controls service process launch behavior.
type LaunchOptions struct {
	Endpoint   string
	ConfigPath string
}

// EnsureResult reports how a client connection was obtained.
type EnsureResult struct {
	Client   *ipc.Client
	Launched bool
}

// Launch starts a detached service process that keeps running after the
// caller exits.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return errors.New("resolve executable: executable path is empty")
	}

	args := []string{"serve"}
	if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
		args = append(args, "--endpoint", endpoint)
	}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch service: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient polls the endpoint until a connection succeeds and the
// service answers a ping.
func WaitForClient(endpoint string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(endpoint, 500*time.Millisecond)
		if err == nil {
			if _, pingErr := client.Ping(); pingErr == nil {
				return client, nil
			} else {
				lastErr = pingErr
				_ = client.Close()
			}
		} else {
			lastErr = err
		}
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for service")
	}
	return nil, fmt.Errorf("service failed to start: %w", lastErr)
}

// EnsureServiceClient returns a connected client, launching the service
// first when nothing answers on the endpoint.
func EnsureServiceClient(endpoint, executablePath string, opts LaunchOptions, connectTimeout, waitTimeout time.Duration) (EnsureResult, error) {
	client, err := ipc.Dial(endpoint, connectTimeout)
	if err == nil {
		if _, pingErr := client.Ping(); pingErr == nil {
			return EnsureResult{Client: client}, nil
		}
		_ = client.Close()
	}

	if launchErr := Launch(executablePath, opts); launchErr != nil {
		return EnsureResult{}, launchErr
	}
	client, err = WaitForClient(endpoint, waitTimeout)
	if err != nil {
		return EnsureResult{}, err
	}
	return EnsureResult{Client: client, Launched: true}, nil
}

// RequestShutdown asks a running service to exit and waits for the endpoint
// to disappear.
func RequestShutdown(endpoint string, timeout time.Duration) error {
	client, err := ipc.Dial(endpoint, 500*time.Millisecond)
	if err != nil {
		return ErrServiceNotRunning
	}
	shutdownErr := client.Shutdown()
	_ = client.Close()
	if shutdownErr != nil {
		return shutdownErr
	}
	return WaitForShutdown(endpoint, timeout)
}

// WaitForShutdown waits until the endpoint stops accepting connections.
func WaitForShutdown(endpoint string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(endpoint, 200*time.Millisecond)
		if err != nil {
			return nil
		}
		_ = client.Close()
		time.Sleep(100 * time.Millisecond)
	}
	return errors.New("service did not stop in time")
}

// ProcessInfo reports whether the service answers on the endpoint and its
// PID when available.
func ProcessInfo(endpoint string) (bool, int, error) {
	client, err := ipc.Dial(endpoint, 500*time.Millisecond)
	if err != nil {
		return false, 0, nil
	}
	defer client.Close()
	pong, pingErr := client.Ping()
	if pingErr != nil {
		return true, 0, pingErr
	}
	return true, pong.PID, nil
}
