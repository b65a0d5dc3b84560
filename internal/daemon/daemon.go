package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"umservice/internal/config"
	"umservice/internal/history"
	"umservice/internal/logging"
	"umservice/internal/session"
)

// Daemon coordinates the background service and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	manager *session.Manager
	store   *history.Store

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time

	shutdownOnce sync.Once
	shutdownCh   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a daemon. The history store may be nil when persistence is
// disabled.
func New(cfg *config.Config, manager *session.Manager, store *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || manager == nil {
		return nil, errors.New("daemon requires config and session manager")
	}

	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		manager:    manager,
		store:      store,
		lockPath:   filepath.Join(cfg.Paths.LogDir, "umserviced.lock"),
		shutdownCh: make(chan struct{}),
	}
	d.lock = flock.New(d.lockPath)
	manager.OnFinished = d.recordOutcome
	return d, nil
}

// Start acquires the daemon lock and launches the session reaper. It fails
// when another instance already holds the lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already started")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another instance is running (lock %s)", d.lockPath)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.startedAt = time.Now()
	d.running.Store(true)

	go d.manager.Run(d.ctx)

	d.logger.Info("daemon started",
		logging.Int("pid", os.Getpid()),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop cancels in-flight batches and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Swap(false) {
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release lock", logging.Error(err))
	}
	_ = os.Remove(d.lockPath)
	d.logger.Info("daemon stopped")
}

// ShutdownRequested is closed when a client asks the service to exit.
func (d *Daemon) ShutdownRequested() <-chan struct{} {
	return d.shutdownCh
}

func (d *Daemon) triggerShutdown() {
	d.shutdownOnce.Do(func() {
		d.logger.Info("shutdown requested by client")
		close(d.shutdownCh)
	})
}

// Uptime reports how long the daemon has been running.
func (d *Daemon) Uptime() time.Duration {
	if d.startedAt.IsZero() {
		return 0
	}
	return time.Since(d.startedAt)
}

// recordOutcome persists one finished batch. Persistence failures are logged
// and otherwise ignored; history is advisory.
func (d *Daemon) recordOutcome(outcome session.Outcome) {
	if d.store == nil {
		return
	}
	rec := history.Record{
		SessionID:    outcome.SessionID,
		Mode:         history.ModeSession,
		Status:       session.TerminalStatus(outcome.Response).String(),
		TotalFiles:   outcome.Response.TotalFiles,
		SuccessCount: outcome.Response.SuccessCount,
		FailedCount:  outcome.Response.FailedCount,
		Duration:     outcome.Duration,
		CreatedAt:    outcome.StartedAt,
	}
	// Background context so records survive the shutdown drain.
	if _, err := d.store.Append(context.Background(), rec); err != nil {
		d.logger.Warn("failed to record batch history",
			logging.String(logging.FieldSessionID, outcome.SessionID),
			logging.Error(err))
	}
}
