package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/store"
)

// Adapter is the platform surface a tab drives.
type Adapter interface {
	Descriptor() schemas.PlatformDescriptor
	Running() bool
	StartExecution(ctx context.Context, job *schemas.JobData) (schemas.ExecutionResult, error)
	StopExecution(reason string)
}

// Storage is the slice of the store a tab persists itself through.
type Storage interface {
	SaveTabSession(ctx context.Context, tabID int, session *schemas.TabSession) error
	GetTabSession(ctx context.Context, tabID int) (*schemas.TabSession, error)
	ClearTabSession(ctx context.Context, tabID int) error
	SaveExecutionResult(ctx context.Context, env schemas.ResultEnvelope) error
}

// Publisher pushes terminal results to the backend.
type Publisher interface {
	PublishResult(ctx context.Context, env schemas.ResultEnvelope) error
}

// TabDeps are the collaborators a new tab is wired from. NewAdapter receives
// the tab itself so the adapter can navigate through it.
type TabDeps struct {
	Store      Storage
	Publisher  Publisher
	NewAdapter func(tabCtx context.Context, tab *Tab) (Adapter, error)
}

// Tab controls one browser tab: it owns the chromedp context, persists the
// session under tab_<id>, debounces start/stop/resume signals and restarts
// interrupted executions after page reloads.
type Tab struct {
	id     int
	log    *zap.Logger
	cfg    *config.Config
	ctx    context.Context
	cancel context.CancelFunc

	adapter  Adapter
	store    Storage
	publish  Publisher
	debounce *debouncer

	mu      sync.Mutex
	session *schemas.TabSession
}

func newTab(id int, logger *zap.Logger, cfg *config.Config, tabCtx context.Context, cancel context.CancelFunc, deps TabDeps) (*Tab, error) {
	t := &Tab{
		id:       id,
		log:      logger.Named(fmt.Sprintf("tab_%d", id)),
		cfg:      cfg,
		ctx:      tabCtx,
		cancel:   cancel,
		store:    deps.Store,
		publish:  deps.Publisher,
		debounce: newDebouncer(cfg.Engine.DebounceWindow),
	}
	adapter, err := deps.NewAdapter(tabCtx, t)
	if err != nil {
		return nil, err
	}
	t.adapter = adapter
	return t, nil
}

// ID returns the tab id.
func (t *Tab) ID() int { return t.id }

// Context returns the chromedp tab context.
func (t *Tab) Context() context.Context { return t.ctx }

// Navigate loads a URL in the tab.
func (t *Tab) Navigate(url string) error {
	return chromedp.Run(t.ctx, chromedp.Navigate(url))
}

// Back navigates one history entry back.
func (t *Tab) Back(ctx context.Context) error {
	return chromedp.Run(t.ctx, chromedp.NavigateBack())
}

// Reload reloads the current page.
func (t *Tab) Reload(ctx context.Context) error {
	return chromedp.Run(t.ctx, chromedp.Reload())
}

// listenNavigation re-enters running executions after full navigations and
// SPA history transitions. ATS flows reload mid-application; without this the
// session would stall with Running=true and nothing driving the page.
func (t *Tab) listenNavigation() {
	chromedp.ListenTarget(t.ctx, func(ev interface{}) {
		switch ev.(type) {
		case *page.EventFrameNavigated, *page.EventNavigatedWithinDocument:
			go func() {
				if err := t.ResumeAfterReload(t.ctx); err != nil {
					t.log.Warn("resume after reload failed", zap.Error(err))
				}
			}()
		}
	})
}

// StartExecution begins an application run for a job. The session is
// persisted as running before the flow starts so a crash or reload can be
// recovered from the store.
func (t *Tab) StartExecution(ctx context.Context, job *schemas.JobData, payload schemas.ExecutionPayload) error {
	if !t.debounce.Allow("start") {
		t.log.Debug("start signal debounced")
		return nil
	}
	if t.adapter.Running() {
		return fmt.Errorf("tab %d already has a running execution", t.id)
	}
	if job == nil {
		return fmt.Errorf("no job data")
	}

	session := &schemas.TabSession{
		Running:         true,
		Payload:         payload,
		SessionID:       uuid.NewString(),
		Platform:        t.adapter.Descriptor(),
		ExecutionResult: schemas.ExecutionPending,
		JobID:           schemas.JobKey{ID: job.ID, Fingerprint: job.Fingerprint},
		JobData:         job,
	}
	t.mu.Lock()
	t.session = session
	t.mu.Unlock()

	if err := t.store.SaveTabSession(ctx, t.id, session); err != nil {
		return fmt.Errorf("persist tab session: %w", err)
	}

	t.log.Info("execution starting",
		zap.String("sessionId", session.SessionID),
		zap.String("jobId", job.ID))
	go t.run(job)
	return nil
}

// StopExecution aborts a running execution.
func (t *Tab) StopExecution(reason string) {
	if !t.debounce.Allow("stop") {
		return
	}
	t.adapter.StopExecution(reason)
}

// ResumeAfterReload restarts an interrupted execution. Invoked by the
// navigation listeners and by the resume action from the control surface. It
// is a no-op when nothing was running or the execution survived the reload.
func (t *Tab) ResumeAfterReload(ctx context.Context) error {
	if !t.debounce.Allow("resume") {
		return nil
	}
	if t.adapter.Running() {
		return nil
	}

	session, err := t.store.GetTabSession(ctx, t.id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !session.Running || session.JobData == nil {
		return nil
	}

	t.mu.Lock()
	t.session = session
	t.mu.Unlock()

	t.log.Info("resuming execution after reload",
		zap.String("sessionId", session.SessionID),
		zap.String("jobId", session.JobData.ID))
	go t.run(session.JobData)
	return nil
}

// run drives one execution to a terminal result and records it.
func (t *Tab) run(job *schemas.JobData) {
	result, err := t.adapter.StartExecution(t.ctx, job)
	if err != nil {
		t.log.Warn("execution error", zap.String("jobId", job.ID), zap.Error(err))
	}
	t.finish(job, result)
}

func (t *Tab) finish(job *schemas.JobData, result schemas.ExecutionResult) {
	t.mu.Lock()
	session := t.session
	if session == nil {
		session = &schemas.TabSession{
			Platform: t.adapter.Descriptor(),
			JobID:    schemas.JobKey{ID: job.ID, Fingerprint: job.Fingerprint},
			JobData:  job,
		}
		t.session = session
	}
	session.Running = false
	session.ExecutionResult = result
	env := schemas.ResultEnvelope{
		ID:          job.ID,
		Fingerprint: job.Fingerprint,
		Result:      result,
		SoftData:    session.SoftData,
		Source:      session.Source,
	}
	t.mu.Unlock()

	ctx := context.Background()
	if err := t.store.SaveTabSession(ctx, t.id, session); err != nil {
		t.log.Error("failed to persist finished session", zap.Error(err))
	}
	if !result.IsTerminal() {
		return
	}
	if err := t.store.SaveExecutionResult(ctx, env); err != nil {
		t.log.Error("failed to record execution result", zap.Error(err))
	}
	if t.publish != nil {
		if err := t.publish.PublishResult(ctx, env); err != nil {
			t.log.Warn("failed to publish execution result", zap.Error(err))
		}
	}
}

// Session returns the current in-memory session, nil when none started.
func (t *Tab) Session() *schemas.TabSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// Close stops any running execution, clears persisted state and tears the
// tab down.
func (t *Tab) Close(ctx context.Context) error {
	t.adapter.StopExecution("tab closed")
	t.cancel()
	if err := t.store.ClearTabSession(ctx, t.id); err != nil {
		return fmt.Errorf("clear session for tab %d: %w", t.id, err)
	}
	return nil
}
