package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"umservice/internal/batch"
	"umservice/internal/config"
	"umservice/internal/convert"
	"umservice/internal/daemonctl"
	"umservice/internal/history"
	"umservice/internal/ipc"
	"umservice/internal/logging"
	"umservice/internal/session"
)

// Mode records which execution path produced a batch result.
const (
	ModeSession = history.ModeSession
	ModeOneShot = history.ModeOneShot
)

// Outcome is the aggregate result of one batch run.
type Outcome struct {
	Response  *batch.Response
	Mode      string
	SessionID string
	// Launched reports whether a service process was spawned for this run.
	Launched bool
}

// ProgressFunc observes processed/total counts while a batch runs.
type ProgressFunc func(processed, total int)

// Runner executes batches against the service with a local fallback.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	executable string
}

// NewRunner builds a Runner. executable is the binary spawned when no
// service answers; empty disables spawning (connect-or-fallback only).
func NewRunner(cfg *config.Config, executable string, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "api"),
		executable: executable,
	}
}

// RunBatch converts files with the given options. Small batches below the
// session threshold run in process; larger ones go through the service.
func (r *Runner) RunBatch(ctx context.Context, files []batch.FileTask, opts batch.Options, onProgress ProgressFunc) (*Outcome, error) {
	if len(files) == 0 {
		return nil, errors.New("no files to convert")
	}
	if len(files) < r.cfg.Client.SessionMinBatch {
		return r.runOneShot(ctx, files, opts, onProgress)
	}

	outcome, err := r.runSession(ctx, files, opts, onProgress)
	if err == nil {
		return outcome, nil
	}
	r.logger.Warn("session path failed, falling back to one-shot batch", logging.Error(err))
	return r.runOneShot(ctx, files, opts, onProgress)
}

// runSession drives the full session lifecycle over IPC.
func (r *Runner) runSession(ctx context.Context, files []batch.FileTask, opts batch.Options, onProgress ProgressFunc) (*Outcome, error) {
	endpoint := r.cfg.Endpoint()
	connectTimeout := time.Duration(r.cfg.Client.ConnectTimeoutMillis) * time.Millisecond
	waitTimeout := time.Duration(r.cfg.Client.SpawnWaitSeconds) * time.Second

	var (
		client   *ipc.Client
		launched bool
	)
	if r.executable == "" {
		var err error
		client, err = ipc.Dial(endpoint, connectTimeout)
		if err != nil {
			return nil, fmt.Errorf("connect to service: %w", err)
		}
	} else {
		ensured, err := daemonctl.EnsureServiceClient(endpoint, r.executable, daemonctl.LaunchOptions{Endpoint: endpoint}, connectTimeout, waitTimeout)
		if err != nil {
			return nil, err
		}
		client = ensured.Client
		launched = ensured.Launched
	}
	defer client.Close()

	sessionID, err := client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	// Best effort: the reaper collects the session anyway if this is lost.
	defer client.EndSession(sessionID)

	chunkSize := r.cfg.Client.AddFilesChunkSize
	if chunkSize <= 0 {
		chunkSize = len(files)
	}
	for start := 0; start < len(files); start += chunkSize {
		end := start + chunkSize
		if end > len(files) {
			end = len(files)
		}
		if _, err := client.AddFiles(sessionID, files[start:end]); err != nil {
			return nil, fmt.Errorf("add files: %w", err)
		}
	}

	started, err := client.StartProcessing(sessionID, opts)
	if err != nil {
		return nil, fmt.Errorf("start processing: %w", err)
	}

	resp, err := r.pollUntilTerminal(ctx, client, sessionID, started.FileCount, onProgress)
	if err != nil {
		return nil, err
	}
	return &Outcome{Response: resp, Mode: ModeSession, SessionID: sessionID, Launched: launched}, nil
}

// pollUntilTerminal polls progress until the session settles. The wall
// budget scales with the batch size; on exhaustion a cooperative stop is
// requested and the partial result is returned if the scheduler drains in
// time.
func (r *Runner) pollUntilTerminal(ctx context.Context, client *ipc.Client, sessionID string, fileCount int, onProgress ProgressFunc) (*batch.Response, error) {
	interval := time.Duration(r.cfg.Client.PollIntervalMillis) * time.Millisecond
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	budget := time.Duration(r.cfg.Client.PerFileTimeoutSecs) * time.Second * time.Duration(fileCount)
	deadline := time.Now().Add(budget)
	stopped := false

	for {
		select {
		case <-ctx.Done():
			_ = client.StopProcessing(sessionID)
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		progress, err := client.Progress(sessionID)
		if err != nil {
			return nil, fmt.Errorf("poll progress: %w", err)
		}
		if onProgress != nil {
			onProgress(progress.ProcessedFiles, progress.TotalFiles)
		}

		status, err := session.ParseStatus(progress.Status)
		if err != nil {
			return nil, fmt.Errorf("service reported unknown status %q", progress.Status)
		}
		if status.IsTerminal() {
			if progress.Result == nil {
				return nil, errors.New("terminal session carried no result")
			}
			return progress.Result, nil
		}

		if !stopped && time.Now().After(deadline) {
			r.logger.Warn("batch exceeded its time budget, requesting stop",
				logging.String(logging.FieldSessionID, sessionID))
			if err := client.StopProcessing(sessionID); err != nil {
				return nil, fmt.Errorf("stop after timeout: %w", err)
			}
			stopped = true
			// Grace period for in-flight tasks to drain.
			deadline = time.Now().Add(30 * time.Second)
			continue
		}
		if stopped && time.Now().After(deadline) {
			return nil, errors.New("service did not settle after stop request")
		}
	}
}

// runOneShot executes the batch in process with the same scheduler the
// service uses.
func (r *Runner) runOneShot(ctx context.Context, files []batch.FileTask, opts batch.Options, onProgress ProgressFunc) (*Outcome, error) {
	startedAt := time.Now()
	converter := convert.NewProcessor(r.cfg.Processing.OutputDir, r.logger)
	sched := batch.NewScheduler(converter, r.cfg.Service.MaxWorkers, r.logger)

	resp := sched.Run(ctx, &batch.Request{Files: files, Options: opts}, onProgress)

	r.recordOneShot(ctx, resp, startedAt)
	return &Outcome{Response: resp, Mode: ModeOneShot}, nil
}

// recordOneShot appends the local batch to history, best effort.
func (r *Runner) recordOneShot(ctx context.Context, resp *batch.Response, startedAt time.Time) {
	if !r.cfg.History.Enabled || r.cfg.History.Path == "" {
		return
	}
	store, err := history.Open(r.cfg.History.Path)
	if err != nil {
		r.logger.Warn("failed to open history store", logging.Error(err))
		return
	}
	defer store.Close()

	rec := history.Record{
		Mode:         history.ModeOneShot,
		Status:       session.TerminalStatus(resp).String(),
		TotalFiles:   resp.TotalFiles,
		SuccessCount: resp.SuccessCount,
		FailedCount:  resp.FailedCount,
		Duration:     time.Since(startedAt),
		CreatedAt:    startedAt,
	}
	if _, err := store.Append(ctx, rec); err != nil {
		r.logger.Warn("failed to record batch history", logging.Error(err))
	}
}
