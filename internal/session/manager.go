package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"umservice/internal/batch"
	"umservice/internal/convert"
	"umservice/internal/logging"
)

// Config bounds the manager's resource usage.
type Config struct {
	// MaxSessions caps concurrently tracked sessions. Zero means no cap.
	MaxSessions int
	// MaxWorkers is passed through to the batch scheduler.
	MaxWorkers int
	// IdleTimeout reclaims non-running sessions untouched for this long.
	// Zero disables reclamation.
	IdleTimeout time.Duration
	// SweepInterval is how often the reaper scans for idle sessions.
	SweepInterval time.Duration
}

// Outcome describes one finished batch, delivered to the OnFinished hook.
type Outcome struct {
	SessionID string
	Response  *batch.Response
	StartedAt time.Time
	Duration  time.Duration
}

// Snapshot is the progress view returned to pollers. Result is nil until the
// session reaches a terminal status.
type Snapshot struct {
	SessionID      string
	Status         Status
	TotalFiles     int
	ProcessedFiles int
	CreatedAt      time.Time
	Result         *batch.Response
}

type state struct {
	id         string
	status     Status
	files      []batch.FileTask
	createdAt  time.Time
	lastActive time.Time
	processed  int
	result     *batch.Response
	cancel     context.CancelFunc
	startedAt  time.Time
}

// Manager owns the session map. All state transitions happen under one
// mutex; scheduler workers only touch sessions through the progress callback.
type Manager struct {
	cfg       Config
	converter batch.Converter
	logger    *slog.Logger
	now       func() time.Time

	// OnFinished, when set before traffic starts, observes every finished
	// batch. Called outside the manager lock.
	OnFinished func(Outcome)

	mu       sync.Mutex
	sessions map[string]*state
	baseCtx  context.Context
}

// NewManager builds a Manager processing batches with converter.
func NewManager(cfg Config, converter batch.Converter, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:       cfg,
		converter: converter,
		logger:    logging.NewComponentLogger(logger, "session"),
		now:       time.Now,
		sessions:  make(map[string]*state),
		baseCtx:   context.Background(),
	}
}

// Run blocks until ctx is canceled, periodically reclaiming idle sessions.
// Batches started after Run begins are bound to ctx and stop with it.
func (m *Manager) Run(ctx context.Context) {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()

	if m.cfg.IdleTimeout <= 0 || m.cfg.SweepInterval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reap()
		}
	}
}

// StartSession allocates a fresh idle session.
func (m *Manager) StartSession() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return "", resourceExhausted(m.cfg.MaxSessions)
	}

	id := uuid.NewString()
	now := m.now()
	m.sessions[id] = &state{
		id:         id,
		status:     StatusIdle,
		createdAt:  now,
		lastActive: now,
	}
	m.logger.Info("session started", logging.String(logging.FieldSessionID, id))
	return id, nil
}

// AddFiles appends tasks to an idle session's queue. Tasks with an
// unsupported extension are dropped and excluded from the returned count;
// missing files are accepted and fail later during conversion.
func (m *Manager) AddFiles(id string, files []batch.FileTask) (added, total int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return 0, 0, notFound(id)
	}
	if sess.status != StatusIdle {
		return 0, 0, invalidState(sess.status, "add files")
	}

	for _, file := range files {
		if !convert.IsSupported(file.InputPath) {
			m.logger.Warn("rejecting unsupported file",
				logging.String(logging.FieldSessionID, id),
				logging.String("input", file.InputPath))
			continue
		}
		sess.files = append(sess.files, file)
		added++
	}
	sess.lastActive = m.now()
	return added, len(sess.files), nil
}

// StartProcessing hands the queue to the scheduler and returns immediately.
func (m *Manager) StartProcessing(id string, opts batch.Options) (fileCount int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return 0, notFound(id)
	}
	if sess.status != StatusIdle {
		return 0, invalidState(sess.status, "start processing")
	}
	if len(sess.files) == 0 {
		return 0, emptyQueue()
	}

	runCtx, cancel := context.WithCancel(m.baseCtx)
	sess.status = StatusRunning
	sess.cancel = cancel
	sess.startedAt = m.now()
	sess.lastActive = sess.startedAt
	sess.processed = 0

	queue := make([]batch.FileTask, len(sess.files))
	copy(queue, sess.files)

	go m.runBatch(runCtx, id, queue, opts)

	m.logger.Info("processing started",
		logging.String(logging.FieldSessionID, id),
		logging.Int("files", len(queue)))
	return len(queue), nil
}

func (m *Manager) runBatch(ctx context.Context, id string, queue []batch.FileTask, opts batch.Options) {
	sched := batch.NewScheduler(m.converter, m.cfg.MaxWorkers, m.logger)
	resp := sched.Run(ctx, &batch.Request{Files: queue, Options: opts}, func(processed, total int) {
		m.mu.Lock()
		if sess, ok := m.sessions[id]; ok {
			sess.processed = processed
			sess.lastActive = m.now()
		}
		m.mu.Unlock()
	})

	var outcome *Outcome
	m.mu.Lock()
	if sess, ok := m.sessions[id]; ok {
		sess.result = resp
		sess.processed = resp.TotalFiles
		sess.status = TerminalStatus(resp)
		sess.lastActive = m.now()
		sess.cancel = nil
		outcome = &Outcome{
			SessionID: id,
			Response:  resp,
			StartedAt: sess.startedAt,
			Duration:  m.now().Sub(sess.startedAt),
		}
		m.logger.Info("processing finished",
			logging.String(logging.FieldSessionID, id),
			logging.String("status", sess.status.String()),
			logging.Int("succeeded", resp.SuccessCount),
			logging.Int("failed", resp.FailedCount))
	}
	m.mu.Unlock()

	if outcome != nil && m.OnFinished != nil {
		m.OnFinished(*outcome)
	}
}

// TerminalStatus maps aggregate counts onto the final session status.
func TerminalStatus(resp *batch.Response) Status {
	switch {
	case resp.FailedCount == 0:
		return StatusCompleted
	case resp.SuccessCount > 0:
		return StatusPartialSuccess
	default:
		return StatusError
	}
}

// Progress returns an atomic view of the session.
func (m *Manager) Progress(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, notFound(id)
	}
	sess.lastActive = m.now()
	return snapshotLocked(sess), nil
}

// StopProcessing requests cooperative cancellation. In-flight tasks finish;
// the terminal status appears on a later Progress call once workers drain.
func (m *Manager) StopProcessing(id string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return "", notFound(id)
	}
	if sess.status != StatusRunning {
		return "", invalidState(sess.status, "stop processing")
	}
	if sess.cancel != nil {
		sess.cancel()
	}
	sess.lastActive = m.now()
	m.logger.Info("stop requested", logging.String(logging.FieldSessionID, id))
	return sess.status, nil
}

// EndSession destroys the session, canceling any in-flight batch. Ending an
// unknown session is a no-op so retries after a lost response are safe.
func (m *Manager) EndSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil
	}
	if sess.cancel != nil {
		sess.cancel()
	}
	delete(m.sessions, id)
	m.logger.Info("session ended", logging.String(logging.FieldSessionID, id))
	return nil
}

// ActiveCount reports the number of tracked sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// List returns snapshots of every session ordered by creation time.
func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snaps := make([]Snapshot, 0, len(m.sessions))
	for _, sess := range m.sessions {
		snaps = append(snaps, snapshotLocked(sess))
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].CreatedAt.Before(snaps[j].CreatedAt) })
	return snaps
}

func snapshotLocked(sess *state) Snapshot {
	snap := Snapshot{
		SessionID:      sess.id,
		Status:         sess.status,
		TotalFiles:     len(sess.files),
		ProcessedFiles: sess.processed,
		CreatedAt:      sess.createdAt,
	}
	if sess.status.IsTerminal() {
		snap.Result = sess.result
	}
	return snap
}

// reap drops non-running sessions whose last activity is older than the
// idle timeout. Running sessions are never reclaimed.
func (m *Manager) reap() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.cfg.IdleTimeout)
	for id, sess := range m.sessions {
		if sess.status == StatusRunning {
			continue
		}
		if sess.lastActive.Before(cutoff) {
			delete(m.sessions, id)
			m.logger.Info("reclaimed idle session",
				logging.String(logging.FieldSessionID, id),
				logging.String("status", sess.status.String()))
		}
	}
}
