package profile_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	app "github.com/mohammadpnp/profile-import/internal/application/profile"
	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuns struct {
	mu        sync.Mutex
	started   []domain.ImportRun
	progress  []domain.BatchProgress
	completed []domain.BatchSummary
	failed    []string
}

func (f *fakeRuns) Start(ctx context.Context, run domain.ImportRun) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, run)
	return "run-1", nil
}

func (f *fakeRuns) UpdateProgress(ctx context.Context, runID string, p domain.BatchProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, p)
	return nil
}

func (f *fakeRuns) Complete(ctx context.Context, runID string, summary domain.BatchSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, summary)
	return nil
}

func (f *fakeRuns) Fail(ctx context.Context, runID string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, reason)
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []domain.BatchProgress
	expired   map[string]time.Duration
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{expired: make(map[string]time.Duration)}
}

func (f *fakePublisher) Publish(ctx context.Context, sessionID string, p domain.BatchProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, p)
	return nil
}

func (f *fakePublisher) Expire(ctx context.Context, sessionID string, after time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired[sessionID] = after
	return nil
}

func newSessions(t *testing.T, store *fakeStore, runs domain.ImportRunRepository, publisher domain.ProgressPublisher, cfg app.ImportSessionsConfig) *app.ImportSessions {
	t.Helper()

	sessions := app.NewImportSessions(store, runs, publisher, cfg, nil)
	t.Cleanup(sessions.Close)
	return sessions
}

func createSession(t *testing.T, sessions *app.ImportSessions, body string) app.SessionSnapshot {
	t.Helper()

	snap, err := sessions.Create(context.Background(), app.CreateSessionInput{
		Filename: "users.csv",
		Body:     strings.NewReader(body),
		Size:     int64(len(body)),
	})
	require.NoError(t, err)
	return snap
}

func TestImportSessionsCreateReconciles(t *testing.T) {
	t.Parallel()

	store := newFakeStore().addProfile(knownID, "known@x.io")
	sessions := newSessions(t, store, nil, nil, app.ImportSessionsConfig{})

	snap := createSession(t, sessions, "ID,Email\n,new@x.io\n"+knownID+",known@x.io\n,broken\n")

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, app.SessionReady, snap.State)
	assert.Equal(t, 1, snap.NewUsers)
	assert.Equal(t, 1, snap.ExistingUsers)
	assert.Equal(t, 1, snap.Invalid)
	assert.Equal(t, 4, snap.Errors[0].Row)

	got, err := sessions.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)

	result, err := sessions.Result(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total())
}

func TestImportSessionsCreateMalformed(t *testing.T) {
	t.Parallel()

	sessions := newSessions(t, newFakeStore(), nil, nil, app.ImportSessionsConfig{})

	_, err := sessions.Create(context.Background(), app.CreateSessionInput{
		Filename: "users.csv",
		Body:     strings.NewReader(""),
	})
	assert.ErrorIs(t, err, app.ErrMalformedFile)
}

func TestImportSessionsApplyRecordsRunAndProgress(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	runs := &fakeRuns{}
	publisher := newFakePublisher()
	sessions := newSessions(t, store, runs, publisher, app.ImportSessionsConfig{BatchSize: 2, TTL: 30 * time.Minute})

	snap := createSession(t, sessions, "Email\na@x.io\nb@x.io\nc@x.io\n")
	require.NoError(t, sessions.Apply(snap.ID))
	assert.ErrorIs(t, sessions.Apply(snap.ID), app.ErrSessionAlreadyApplied)

	summary, err := sessions.Wait(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Successful)

	got, err := sessions.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, app.SessionCompleted, got.State)
	require.NotNil(t, got.Progress)
	assert.Equal(t, 3, got.Progress.Processed)

	runs.mu.Lock()
	require.Len(t, runs.started, 1)
	assert.Equal(t, 3, runs.started[0].NewCount)
	require.Len(t, runs.completed, 1)
	assert.Empty(t, runs.failed)
	var recorded []int
	for _, p := range runs.progress {
		recorded = append(recorded, p.Processed)
	}
	runs.mu.Unlock()
	assert.Equal(t, []int{0, 2, 3}, recorded)

	publisher.mu.Lock()
	assert.Len(t, publisher.published, 4)
	assert.Equal(t, 30*time.Minute, publisher.expired[snap.ID])
	publisher.mu.Unlock()
}

func TestImportSessionsControlRequiresApply(t *testing.T) {
	t.Parallel()

	sessions := newSessions(t, newFakeStore(), nil, nil, app.ImportSessionsConfig{})
	snap := createSession(t, sessions, "Email\na@x.io\n")

	assert.ErrorIs(t, sessions.Pause(snap.ID), app.ErrSessionNotApplied)
	assert.ErrorIs(t, sessions.Resume(snap.ID), app.ErrSessionNotApplied)
	assert.ErrorIs(t, sessions.Cancel(snap.ID), app.ErrSessionNotApplied)
	_, err := sessions.Wait(context.Background(), snap.ID)
	assert.ErrorIs(t, err, app.ErrSessionNotApplied)

	assert.ErrorIs(t, sessions.Apply("missing"), app.ErrSessionNotFound)
	_, err = sessions.Get("missing")
	assert.ErrorIs(t, err, app.ErrSessionNotFound)
}

func TestImportSessionsCancelMarksSessionCancelled(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	runs := &fakeRuns{}
	sessions := newSessions(t, store, runs, nil, app.ImportSessionsConfig{})
	snap := createSession(t, sessions, "Email\na@x.io\nb@x.io\nc@x.io\n")

	store.beforeCreate = func(email string) {
		if email == "a@x.io" {
			assert.NoError(t, sessions.Cancel(snap.ID))
		}
	}
	require.NoError(t, sessions.Apply(snap.ID))

	summary, err := sessions.Wait(context.Background(), snap.ID)
	require.ErrorIs(t, err, app.ErrOperationCancelled)
	assert.True(t, summary.Cancelled)
	assert.Equal(t, 1, summary.Successful)
	assert.Equal(t, []string{"a@x.io"}, store.createdEmails())

	got, err := sessions.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, app.SessionCancelled, got.State)

	runs.mu.Lock()
	defer runs.mu.Unlock()
	require.Len(t, runs.completed, 1)
	assert.True(t, runs.completed[0].Cancelled)
	assert.Empty(t, runs.failed)
}

func TestImportSessionsPauseReportedInSnapshot(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	sessions := newSessions(t, store, nil, nil, app.ImportSessionsConfig{})
	snap := createSession(t, sessions, "Email\na@x.io\nb@x.io\n")

	store.beforeCreate = func(email string) {
		if email == "a@x.io" {
			assert.NoError(t, sessions.Pause(snap.ID))
		}
	}
	require.NoError(t, sessions.Apply(snap.ID))

	require.Eventually(t, func() bool {
		got, err := sessions.Get(snap.ID)
		return err == nil && got.State == app.SessionPaused && got.Progress != nil && got.Progress.Processed == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, sessions.Resume(snap.ID))
	summary, err := sessions.Wait(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Successful)
}

func TestImportSessionsReports(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.createErr["dup@x.io"] = errors.New("duplicate email")
	sessions := newSessions(t, store, nil, nil, app.ImportSessionsConfig{})
	snap := createSession(t, sessions, "Email,Role\ndup@x.io,\nok@x.io,owner\n")

	var buf bytes.Buffer
	assert.ErrorIs(t, sessions.WriteErrorReport(snap.ID, &buf), app.ErrNothingToReport)

	require.NoError(t, sessions.WriteValidationReport(snap.ID, &buf))
	assert.Contains(t, buf.String(), `"3","validation","role: Invalid enum value.`)

	require.NoError(t, sessions.Apply(snap.ID))
	_, err := sessions.Wait(context.Background(), snap.ID)
	require.NoError(t, err)

	buf.Reset()
	require.NoError(t, sessions.WriteErrorReport(snap.ID, &buf))
	assert.Contains(t, buf.String(), `"2","creation","Failed to create user: duplicate email","email: dup@x.io"`)
}

func TestImportSessionsDiscard(t *testing.T) {
	t.Parallel()

	publisher := newFakePublisher()
	sessions := newSessions(t, newFakeStore(), nil, publisher, app.ImportSessionsConfig{})
	snap := createSession(t, sessions, "Email\na@x.io\n")

	require.NoError(t, sessions.Discard(snap.ID))
	assert.ErrorIs(t, sessions.Discard(snap.ID), app.ErrSessionNotFound)
	_, err := sessions.Get(snap.ID)
	assert.ErrorIs(t, err, app.ErrSessionNotFound)

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	after, ok := publisher.expired[snap.ID]
	assert.True(t, ok)
	assert.Zero(t, after)
}

func TestImportSessionsSweepExpiresIdleSessions(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		now = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	store := newFakeStore()
	sessions := newSessions(t, store, nil, nil, app.ImportSessionsConfig{TTL: time.Hour, Now: clock})

	old := createSession(t, sessions, "Email\na@x.io\n")
	running := createSession(t, sessions, "Email\nb@x.io\n")
	advance(30 * time.Minute)
	fresh := createSession(t, sessions, "Email\nc@x.io\n")

	release := make(chan struct{})
	store.beforeCreate = func(email string) {
		if email == "b@x.io" {
			<-release
		}
	}
	require.NoError(t, sessions.Apply(running.ID))

	advance(45 * time.Minute)
	assert.Equal(t, 1, sessions.Sweep())

	_, err := sessions.Get(old.ID)
	assert.ErrorIs(t, err, app.ErrSessionNotFound)
	_, err = sessions.Get(running.ID)
	assert.NoError(t, err)
	_, err = sessions.Get(fresh.ID)
	assert.NoError(t, err)

	close(release)
	_, err = sessions.Wait(context.Background(), running.ID)
	require.NoError(t, err)
}

func TestImportSessionsRunJanitorStopsWithContext(t *testing.T) {
	t.Parallel()

	sessions := newSessions(t, newFakeStore(), nil, nil, app.ImportSessionsConfig{JanitorInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sessions.RunJanitor(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestImportSessionsCloseStopsPausedRun(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	runs := &fakeRuns{}
	sessions := app.NewImportSessions(store, runs, nil, app.ImportSessionsConfig{}, nil)
	snap := createSession(t, sessions, "Email\na@x.io\nb@x.io\n")

	store.beforeCreate = func(email string) {
		if email == "a@x.io" {
			assert.NoError(t, sessions.Pause(snap.ID))
		}
	}
	require.NoError(t, sessions.Apply(snap.ID))
	require.Eventually(t, func() bool { return len(store.createdEmails()) == 1 }, time.Second, 5*time.Millisecond)

	sessions.Close()

	summary, err := sessions.Wait(context.Background(), snap.ID)
	assert.ErrorIs(t, err, app.ErrOperationCancelled)
	assert.True(t, summary.Cancelled)

	runs.mu.Lock()
	defer runs.mu.Unlock()
	assert.Len(t, runs.completed, 1)
}

func TestImportSessionsApplyResolvesSupervisorCreatedInSameFile(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.createdAreSupervisors = true
	sessions := newSessions(t, store, nil, nil, app.ImportSessionsConfig{})

	snap := createSession(t, sessions, "Email,Supervisor Email\nboss@x.io,\nworker@x.io,boss@x.io\n")
	require.NoError(t, sessions.Apply(snap.ID))
	summary, err := sessions.Wait(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Successful)

	const (
		bossID   = "00000000-0000-4000-8000-000000000001"
		workerID = "00000000-0000-4000-8000-000000000002"
	)
	store.mu.Lock()
	updates := store.updates[workerID]
	store.mu.Unlock()
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].SupervisorID)
	assert.Equal(t, bossID, *updates[0].SupervisorID)
	assert.Equal(t, 2, store.lookupCount(domain.EntitySupervisor, "boss@x.io"))
}

func TestImportSessionsApplyResolvesAgainstCurrentEntities(t *testing.T) {
	t.Parallel()

	store := newFakeStore().addEntity(domain.EntityLevel, "Senior", "lvl-2")
	sessions := newSessions(t, store, nil, nil, app.ImportSessionsConfig{})

	snap := createSession(t, sessions, "Email,Level\na@x.io,Senior\n")
	assert.Equal(t, 1, store.lookupCount(domain.EntityLevel, "Senior"))
	store.removeEntity(domain.EntityLevel, "Senior")

	require.NoError(t, sessions.Apply(snap.ID))
	summary, err := sessions.Wait(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Successful)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.updates["00000000-0000-4000-8000-000000000001"])
	assert.Equal(t, 2, store.lookups[string(domain.EntityLevel)+":Senior"])
}

func TestImportSessionsCloseLetsInFlightRowFinish(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	sessions := app.NewImportSessions(store, nil, nil, app.ImportSessionsConfig{}, nil)
	snap := createSession(t, sessions, "Email\na@x.io\nb@x.io\n")

	entered := make(chan struct{})
	release := make(chan struct{})
	store.beforeCreate = func(email string) {
		if email == "a@x.io" {
			close(entered)
			<-release
		}
	}
	require.NoError(t, sessions.Apply(snap.ID))
	<-entered

	closed := make(chan struct{})
	go func() {
		sessions.Close()
		close(closed)
	}()
	// give Close time to stop the manager while the row is still in the store
	time.Sleep(20 * time.Millisecond)
	close(release)

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	summary, err := sessions.Wait(context.Background(), snap.ID)
	if err != nil {
		assert.ErrorIs(t, err, app.ErrOperationCancelled)
	}
	assert.Equal(t, 0, summary.Failed)
	assert.Empty(t, summary.Errors)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.NotEmpty(t, store.createCtxErrs)
	for _, ctxErr := range store.createCtxErrs {
		assert.NoError(t, ctxErr)
	}
	assert.Equal(t, "a@x.io", store.created[0].Email)
}
