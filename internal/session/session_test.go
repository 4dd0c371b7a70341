package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/store"
)

func TestDebounceSuppressesWithinWindow(t *testing.T) {
	clock := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	d := newDebouncer(time.Second)
	d.now = func() time.Time { return clock }

	assert.True(t, d.Allow("start"))
	assert.False(t, d.Allow("start"))

	// A different key has its own window.
	assert.True(t, d.Allow("stop"))

	clock = clock.Add(999 * time.Millisecond)
	assert.False(t, d.Allow("start"))

	clock = clock.Add(time.Millisecond)
	assert.True(t, d.Allow("start"))
}

func TestDebounceDisabledWindow(t *testing.T) {
	d := newDebouncer(0)
	assert.True(t, d.Allow("start"))
	assert.True(t, d.Allow("start"))
}

type fakeAdapter struct {
	mu      sync.Mutex
	running bool
	starts  int
	result  schemas.ExecutionResult
	err     error
	stops   []string
}

func (f *fakeAdapter) Descriptor() schemas.PlatformDescriptor {
	return schemas.PlatformDescriptor{Type: schemas.PlatformATS, Name: "workday"}
}

func (f *fakeAdapter) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeAdapter) StartExecution(ctx context.Context, job *schemas.JobData) (schemas.ExecutionResult, error) {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeAdapter) StopExecution(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, reason)
}

func (f *fakeAdapter) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type fakeStore struct {
	mu       sync.Mutex
	sessions map[int]*schemas.TabSession
	results  []schemas.ResultEnvelope
	cleared  []int
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[int]*schemas.TabSession{}}
}

func (f *fakeStore) SaveTabSession(ctx context.Context, tabID int, s *schemas.TabSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *s
	f.sessions[tabID] = &clone
	return nil
}

func (f *fakeStore) GetTabSession(ctx context.Context, tabID int) (*schemas.TabSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[tabID]
	if !ok {
		return nil, fmt.Errorf("%w: tab %d", store.ErrNotFound, tabID)
	}
	clone := *s
	return &clone, nil
}

func (f *fakeStore) ClearTabSession(ctx context.Context, tabID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tabID)
	f.cleared = append(f.cleared, tabID)
	return nil
}

func (f *fakeStore) SaveExecutionResult(ctx context.Context, env schemas.ResultEnvelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, env)
	return nil
}

func (f *fakeStore) session(tabID int) *schemas.TabSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[tabID]
}

func (f *fakeStore) resultCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

type fakePublisher struct {
	mu   sync.Mutex
	envs []schemas.ResultEnvelope
}

func (f *fakePublisher) PublishResult(ctx context.Context, env schemas.ResultEnvelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envs = append(f.envs, env)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.envs)
}

func testTab(t *testing.T, adapter *fakeAdapter, st *fakeStore, pub *fakePublisher, window time.Duration) *Tab {
	t.Helper()
	cfg := &config.Config{}
	cfg.Engine.DebounceWindow = window

	deps := TabDeps{
		Store: st,
		NewAdapter: func(tabCtx context.Context, tab *Tab) (Adapter, error) {
			return adapter, nil
		},
	}
	if pub != nil {
		deps.Publisher = pub
	}
	tab, err := newTab(7, zap.NewNop(), cfg, context.Background(), func() {}, deps)
	require.NoError(t, err)
	return tab
}

func testJob() *schemas.JobData {
	return &schemas.JobData{
		ID:          "req-1001",
		Fingerprint: "ab12cd34ef56ab12",
		Title:       "Backend Engineer",
		Company:     "Acme",
	}
}

func TestStartExecutionPersistsAndRecordsResult(t *testing.T) {
	adapter := &fakeAdapter{result: schemas.ExecutionApplied}
	st := newFakeStore()
	pub := &fakePublisher{}
	tab := testTab(t, adapter, st, pub, 0)

	require.NoError(t, tab.StartExecution(context.Background(), testJob(), schemas.ExecutionPayload{Mode: "single"}))

	assert.Eventually(t, func() bool { return st.resultCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)

	session := st.session(7)
	require.NotNil(t, session)
	assert.False(t, session.Running)
	assert.Equal(t, schemas.ExecutionApplied, session.ExecutionResult)
	assert.Equal(t, "req-1001", session.JobID.ID)
	assert.Equal(t, "workday", session.Platform.Name)
	assert.NotEmpty(t, session.SessionID)
	assert.Equal(t, 1, adapter.startCount())
}

func TestStartExecutionDebounced(t *testing.T) {
	adapter := &fakeAdapter{result: schemas.ExecutionApplied}
	st := newFakeStore()
	tab := testTab(t, adapter, st, nil, time.Minute)

	require.NoError(t, tab.StartExecution(context.Background(), testJob(), schemas.ExecutionPayload{}))
	require.NoError(t, tab.StartExecution(context.Background(), testJob(), schemas.ExecutionPayload{}))

	assert.Eventually(t, func() bool { return st.resultCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, adapter.startCount())
}

func TestStartExecutionRejectsWhenRunning(t *testing.T) {
	adapter := &fakeAdapter{running: true}
	tab := testTab(t, adapter, newFakeStore(), nil, 0)

	err := tab.StartExecution(context.Background(), testJob(), schemas.ExecutionPayload{})
	assert.ErrorContains(t, err, "already has a running execution")
}

func TestResumeAfterReloadRestartsRunningSession(t *testing.T) {
	adapter := &fakeAdapter{result: schemas.ExecutionApplied}
	st := newFakeStore()
	tab := testTab(t, adapter, st, nil, 0)

	job := testJob()
	require.NoError(t, st.SaveTabSession(context.Background(), 7, &schemas.TabSession{
		Running:   true,
		SessionID: "resumed",
		JobID:     schemas.JobKey{ID: job.ID, Fingerprint: job.Fingerprint},
		JobData:   job,
	}))

	require.NoError(t, tab.ResumeAfterReload(context.Background()))
	assert.Eventually(t, func() bool { return adapter.startCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestResumeAfterReloadIgnoresIdleSession(t *testing.T) {
	adapter := &fakeAdapter{}
	st := newFakeStore()
	tab := testTab(t, adapter, st, nil, 0)

	require.NoError(t, st.SaveTabSession(context.Background(), 7, &schemas.TabSession{
		Running:         false,
		ExecutionResult: schemas.ExecutionApplied,
		JobData:         testJob(),
	}))

	require.NoError(t, tab.ResumeAfterReload(context.Background()))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, adapter.startCount())
}

func TestResumeAfterReloadNoStoredSession(t *testing.T) {
	adapter := &fakeAdapter{}
	tab := testTab(t, adapter, newFakeStore(), nil, 0)

	require.NoError(t, tab.ResumeAfterReload(context.Background()))
	assert.Zero(t, adapter.startCount())
}

func TestResumeAfterReloadSkipsLiveExecution(t *testing.T) {
	adapter := &fakeAdapter{running: true}
	st := newFakeStore()
	tab := testTab(t, adapter, st, nil, 0)

	require.NoError(t, st.SaveTabSession(context.Background(), 7, &schemas.TabSession{
		Running: true,
		JobData: testJob(),
	}))

	require.NoError(t, tab.ResumeAfterReload(context.Background()))
	assert.Zero(t, adapter.startCount())
}

func TestAbortedResultRecordedForRetry(t *testing.T) {
	adapter := &fakeAdapter{result: schemas.ExecutionAborted}
	st := newFakeStore()
	tab := testTab(t, adapter, st, nil, 0)

	require.NoError(t, tab.StartExecution(context.Background(), testJob(), schemas.ExecutionPayload{}))

	assert.Eventually(t, func() bool { return st.resultCount() == 1 }, time.Second, 5*time.Millisecond)
	st.mu.Lock()
	env := st.results[0]
	st.mu.Unlock()
	// The store maps aborted to pending on write; the envelope carries the
	// real outcome.
	assert.Equal(t, schemas.ExecutionAborted, env.Result)
}

func TestCloseStopsAndClears(t *testing.T) {
	adapter := &fakeAdapter{}
	st := newFakeStore()
	tab := testTab(t, adapter, st, nil, 0)

	require.NoError(t, tab.Close(context.Background()))
	assert.Equal(t, []string{"tab closed"}, adapter.stops)
	assert.Equal(t, []int{7}, st.cleared)
}
