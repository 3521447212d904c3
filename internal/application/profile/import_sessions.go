package profile

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"go.uber.org/zap"
)

type SessionState string

const (
	SessionReady     SessionState = "ready"
	SessionRunning   SessionState = "running"
	SessionPaused    SessionState = "paused"
	SessionCompleted SessionState = "completed"
	SessionCancelled SessionState = "cancelled"
	SessionFailed    SessionState = "failed"
)

// SessionSnapshot is a read-only view of an import session.
type SessionSnapshot struct {
	ID            string                   `json:"id"`
	Filename      string                   `json:"filename"`
	State         SessionState             `json:"state"`
	NewUsers      int                      `json:"new_users"`
	ExistingUsers int                      `json:"existing_users"`
	Invalid       int                      `json:"invalid"`
	Errors        []domain.ValidationError `json:"errors"`
	Progress      *domain.BatchProgress    `json:"progress,omitempty"`
	Summary       *domain.BatchSummary     `json:"summary,omitempty"`
	Failure       string                   `json:"failure,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}

// ImportSessionManager is the surface transports use to drive imports.
type ImportSessionManager interface {
	Create(ctx context.Context, in CreateSessionInput) (SessionSnapshot, error)
	Get(id string) (SessionSnapshot, error)
	Apply(id string) error
	Wait(ctx context.Context, id string) (domain.BatchSummary, error)
	Pause(id string) error
	Resume(id string) error
	Cancel(id string) error
	Discard(id string) error
	WriteErrorReport(id string, w io.Writer) error
	WriteValidationReport(id string, w io.Writer) error
}

var _ ImportSessionManager = (*ImportSessions)(nil)

type CreateSessionInput struct {
	Filename   string
	Body       io.Reader
	Size       int64
	OnProgress ProgressFunc
}

type ImportSessionsConfig struct {
	BatchSize       int
	TTL             time.Duration
	JanitorInterval time.Duration
	Now             func() time.Time
}

type importSession struct {
	id        string
	filename  string
	createdAt time.Time
	result    domain.ProcessingResult
	ctrl      *Controller
	done      chan struct{}

	mu       sync.Mutex
	state    SessionState
	applied  bool
	progress *domain.BatchProgress
	summary  *domain.BatchSummary
	failure  string
	runErr   error
}

// ImportSessions keeps uploaded files between preview and apply. Sessions
// live in memory only and expire after the configured TTL.
type ImportSessions struct {
	store     domain.ProfileStore
	runs      domain.ImportRunRepository
	publisher domain.ProgressPublisher
	cfg       ImportSessionsConfig
	logger    *zap.Logger
	now       func() time.Time

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.RWMutex
	sessions map[string]*importSession
}

// NewImportSessions wires the session manager. runs and publisher are
// optional.
func NewImportSessions(store domain.ProfileStore, runs domain.ImportRunRepository, publisher domain.ProgressPublisher, cfg ImportSessionsConfig, logger *zap.Logger) *ImportSessions {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	baseCtx, stop := context.WithCancel(context.Background())
	return &ImportSessions{
		store:     store,
		runs:      runs,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       cfg.Now,
		baseCtx:   baseCtx,
		stop:      stop,
		sessions:  make(map[string]*importSession),
	}
}

// Create parses and reconciles an upload into a new session.
func (s *ImportSessions) Create(ctx context.Context, in CreateSessionInput) (SessionSnapshot, error) {
	reader, err := OpenRowReader(in.Filename, in.Body, in.Size)
	if err != nil {
		return SessionSnapshot{}, err
	}
	defer reader.Close()

	preview := NewResolver(s.store, s.logger)
	result, err := NewReconciler(s.store, s.logger).ProcessFile(ctx, reader, preview, in.OnProgress)
	if err != nil {
		return SessionSnapshot{}, err
	}

	sess := &importSession{
		id:        uuid.NewString(),
		filename:  in.Filename,
		createdAt: s.now(),
		result:    result,
		ctrl:      NewController(),
		done:      make(chan struct{}),
		state:     SessionReady,
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("import session created",
		zap.String("session_id", sess.id),
		zap.String("filename", in.Filename),
		zap.Int("new", len(result.NewUsers)),
		zap.Int("existing", len(result.ExistingUsers)),
		zap.Int("invalid", len(result.Errors)))

	return sess.snapshot(), nil
}

func (s *ImportSessions) Get(id string) (SessionSnapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return sess.snapshot(), nil
}

// Result returns the reconciled rows of a session.
func (s *ImportSessions) Result(id string) (domain.ProcessingResult, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return domain.ProcessingResult{}, err
	}
	return sess.result, nil
}

// Apply starts the batch stage in the background. A session can be applied
// only once.
func (s *ImportSessions) Apply(id string) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.applied {
		sess.mu.Unlock()
		return ErrSessionAlreadyApplied
	}
	sess.applied = true
	sess.state = SessionRunning
	sess.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(sess.done)
		s.run(sess)
	}()
	return nil
}

// run applies a session. Shutdown stops it through the controller so the row
// in flight still completes against the store.
func (s *ImportSessions) run(sess *importSession) {
	ctx := context.WithoutCancel(s.baseCtx)
	stopWatch := context.AfterFunc(s.baseCtx, sess.ctrl.Cancel)
	defer stopWatch()
	logger := s.logger.With(zap.String("session_id", sess.id))

	runID := s.startRun(ctx, sess, logger)

	// reference answers from the preview may be stale by now
	resolver := NewResolver(s.store, logger)
	processor := NewBatchProcessor(s.store, resolver, BatchProcessorConfig{BatchSize: s.cfg.BatchSize}, logger)
	summary, err := processor.Run(ctx, sess.result, sess.ctrl, func(p domain.BatchProgress) {
		sess.mu.Lock()
		sess.progress = &p
		sess.mu.Unlock()
		s.publish(ctx, sess.id, p, runID, logger)
	})

	state := SessionCompleted
	switch {
	case errors.Is(err, ErrOperationCancelled):
		state = SessionCancelled
	case err != nil:
		state = SessionFailed
	}

	sess.mu.Lock()
	sess.state = state
	sess.summary = &summary
	sess.runErr = err
	if state == SessionFailed {
		sess.failure = err.Error()
	}
	sess.mu.Unlock()

	s.finishRun(sess.id, runID, summary, err, logger)
}

func (s *ImportSessions) startRun(ctx context.Context, sess *importSession, logger *zap.Logger) string {
	if s.runs == nil {
		return ""
	}
	runID, err := s.runs.Start(ctx, domain.ImportRun{
		SessionID:     sess.id,
		Filename:      sess.filename,
		Status:        domain.RunStatusRunning,
		NewCount:      len(sess.result.NewUsers),
		ExistingCount: len(sess.result.ExistingUsers),
		InvalidCount:  len(sess.result.Errors),
	})
	if err != nil {
		logger.Warn("record import run start failed", zap.Error(err))
		return ""
	}
	return runID
}

func (s *ImportSessions) publish(ctx context.Context, sessionID string, p domain.BatchProgress, runID string, logger *zap.Logger) {
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, sessionID, p); err != nil {
			logger.Warn("publish import progress failed", zap.Error(err))
		}
	}
	batchBoundary := p.Processed == p.Total || p.Processed%s.cfg.BatchSize == 0
	if s.runs != nil && runID != "" && batchBoundary {
		if err := s.runs.UpdateProgress(ctx, runID, p); err != nil {
			logger.Warn("record import run progress failed", zap.Error(err))
		}
	}
}

func (s *ImportSessions) finishRun(sessionID, runID string, summary domain.BatchSummary, runErr error, logger *zap.Logger) {
	// the run may have been stopped by shutdown; the audit row is still written
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.baseCtx), 10*time.Second)
	defer cancel()

	if s.runs != nil && runID != "" {
		var err error
		if runErr != nil && !errors.Is(runErr, ErrOperationCancelled) {
			err = s.runs.Fail(ctx, runID, runErr.Error())
		} else {
			err = s.runs.Complete(ctx, runID, summary)
		}
		if err != nil {
			logger.Warn("record import run result failed", zap.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Expire(ctx, sessionID, s.cfg.TTL); err != nil {
			logger.Warn("expire import progress failed", zap.Error(err))
		}
	}
}

// Wait blocks until an applied session finishes.
func (s *ImportSessions) Wait(ctx context.Context, id string) (domain.BatchSummary, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return domain.BatchSummary{}, err
	}
	sess.mu.Lock()
	applied := sess.applied
	sess.mu.Unlock()
	if !applied {
		return domain.BatchSummary{}, ErrSessionNotApplied
	}

	select {
	case <-sess.done:
	case <-ctx.Done():
		return domain.BatchSummary{}, ctx.Err()
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return *sess.summary, sess.runErr
}

func (s *ImportSessions) Pause(id string) error {
	return s.control(id, (*Controller).Pause)
}

func (s *ImportSessions) Resume(id string) error {
	return s.control(id, (*Controller).Resume)
}

func (s *ImportSessions) Cancel(id string) error {
	return s.control(id, (*Controller).Cancel)
}

func (s *ImportSessions) control(id string, op func(*Controller)) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	applied := sess.applied
	sess.mu.Unlock()
	if !applied {
		return ErrSessionNotApplied
	}
	op(sess.ctrl)
	return nil
}

// Discard removes a session, cancelling its batch if one is running.
func (s *ImportSessions) Discard(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.ctrl.Cancel()
	if s.publisher != nil {
		if err := s.publisher.Expire(s.baseCtx, id, 0); err != nil {
			s.logger.Warn("expire import progress failed", zap.String("session_id", id), zap.Error(err))
		}
	}
	return nil
}

func (s *ImportSessions) WriteErrorReport(id string, w io.Writer) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	summary := sess.summary
	sess.mu.Unlock()
	if summary == nil {
		return ErrNothingToReport
	}
	return WriteErrorReport(w, EntriesFromImportErrors(summary.Errors))
}

func (s *ImportSessions) WriteValidationReport(id string, w io.Writer) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	return WriteErrorReport(w, EntriesFromValidationErrors(sess.result.Errors))
}

// Sweep drops sessions older than the TTL that are not running and returns
// how many were removed.
func (s *ImportSessions) Sweep() int {
	cutoff := s.now().Add(-s.cfg.TTL)

	s.mu.Lock()
	var expired []string
	for id, sess := range s.sessions {
		if sess.createdAt.After(cutoff) {
			continue
		}
		sess.mu.Lock()
		running := sess.state == SessionRunning
		sess.mu.Unlock()
		if running {
			continue
		}
		delete(s.sessions, id)
		expired = append(expired, id)
	}
	s.mu.Unlock()

	for _, id := range expired {
		s.logger.Debug("import session expired", zap.String("session_id", id))
	}
	return len(expired)
}

// RunJanitor sweeps expired sessions until ctx is done.
func (s *ImportSessions) RunJanitor(ctx context.Context) {
	for {
		if !sleepWithContext(ctx, s.cfg.JanitorInterval) {
			return
		}
		if n := s.Sweep(); n > 0 {
			s.logger.Info("expired import sessions removed", zap.Int("count", n))
		}
	}
}

// Close cancels running batches after their current row and waits for them
// to stop.
func (s *ImportSessions) Close() {
	s.stop()
	s.wg.Wait()
}

func (s *ImportSessions) lookup(id string) (*importSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (sess *importSession) snapshot() SessionSnapshot {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	state := sess.state
	if state == SessionRunning && sess.ctrl.Paused() {
		state = SessionPaused
	}
	errs := sess.result.Errors
	if errs == nil {
		errs = []domain.ValidationError{}
	}
	return SessionSnapshot{
		ID:            sess.id,
		Filename:      sess.filename,
		State:         state,
		NewUsers:      len(sess.result.NewUsers),
		ExistingUsers: len(sess.result.ExistingUsers),
		Invalid:       len(sess.result.Errors),
		Errors:        errs,
		Progress:      sess.progress,
		Summary:       sess.summary,
		Failure:       sess.failure,
		CreatedAt:     sess.createdAt,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
