package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"umservice/internal/config"
	"umservice/internal/convert"
	"umservice/internal/daemon"
	"umservice/internal/history"
	"umservice/internal/ipc"
	"umservice/internal/logging"
	"umservice/internal/preflight"
	"umservice/internal/session"
)

// Run builds the full service from cfg and blocks until ctx is canceled or a
// client requests shutdown. The endpoint argument overrides the configured
// one when non-empty.
func Run(ctx context.Context, cfg *config.Config, endpoint string, logger *slog.Logger) error {
	if cfg == nil {
		return fmt.Errorf("daemonrun requires a config")
	}
	logger = logging.NewComponentLogger(logger, "service")

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	if err := preflight.CheckDirectoryAccess(cfg.Paths.LogDir); err != nil {
		return fmt.Errorf("log directory preflight: %w", err)
	}
	if dir := strings.TrimSpace(cfg.Processing.OutputDir); dir != "" {
		if err := preflight.CheckDirectoryAccess(dir); err != nil {
			return fmt.Errorf("output directory preflight: %w", err)
		}
	}
	if strings.TrimSpace(endpoint) == "" {
		endpoint = cfg.Endpoint()
	}

	var store *history.Store
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) != "" {
		var err error
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer store.Close()
	}

	converter := convert.NewProcessor(cfg.Processing.OutputDir, logger)
	manager := session.NewManager(session.Config{
		MaxSessions:   cfg.Service.MaxSessions,
		MaxWorkers:    cfg.Service.MaxWorkers,
		IdleTimeout:   time.Duration(cfg.Service.SessionTimeoutMinutes) * time.Minute,
		SweepInterval: time.Duration(cfg.Service.CleanupIntervalMinutes) * time.Minute,
	}, converter, logger)

	d, err := daemon.New(cfg, manager, store, logger)
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		return err
	}
	defer d.Stop()

	server, err := ipc.NewServer(ctx, endpoint, d, logger)
	if err != nil {
		return err
	}
	server.Serve()
	defer server.Close()

	logger.Info("service ready",
		logging.String("endpoint", endpoint),
		logging.Int("max_sessions", cfg.Service.MaxSessions),
		logging.Int("max_workers", cfg.Service.MaxWorkers))

	select {
	case <-ctx.Done():
		logger.Info("service stopping", logging.String("reason", "signal"))
	case <-d.ShutdownRequested():
		logger.Info("service stopping", logging.String("reason", "client request"))
	}
	return nil
}
