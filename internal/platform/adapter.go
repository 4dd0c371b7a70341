package platform

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/catalog"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/discovery"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/dom"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/execctl"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/formmgr"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/orchestrator"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/resolver"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/services"
)

// pageProbe is the slice of the dom driver the page classifier reads.
type pageProbe interface {
	Title(ctx context.Context) (string, error)
	VisibleCount(ctx context.Context, loc schemas.Locator) (int, error)
}

// Nav drives tab-level navigation for challenge-page escapes.
type Nav interface {
	Back(ctx context.Context) error
	Reload(ctx context.Context) error
}

// Deps are the per-tab collaborators an adapter is wired from.
type Deps struct {
	Logger  *zap.Logger
	Config  *config.Config
	Driver  *dom.Driver
	Profile *profile.Profile
	Broker  *services.Broker
	LLM     *services.LLMClient
	Nav     Nav
}

// Adapter drives one ATS platform on one tab: page classification, question
// discovery and resolution, and the full application flow.
type Adapter struct {
	name    string
	desc    schemas.PlatformDescriptor
	log     *zap.Logger
	drv     pageProbe
	nav     Nav
	markers pageMarkers
	disc    *discovery.Discoverer
	res     *resolver.Resolver
	orch    *orchestrator.Orchestrator

	mu  sync.Mutex
	ctl *execctl.Controller
}

// NewAdapter wires an adapter for a supported platform.
func NewAdapter(desc schemas.PlatformDescriptor, deps Deps) (*Adapter, error) {
	if !IsSupported(desc) {
		return nil, fmt.Errorf("no adapter for platform %q", desc.Name)
	}
	cat, ok := catalog.For(desc.Name)
	if !ok {
		return nil, fmt.Errorf("no question catalog for platform %q", desc.Name)
	}

	log := deps.Logger.Named(desc.Name)
	disc := discovery.New(log, desc.Name, deps.Driver.Eval, deps.Driver.OuterHTML)

	var svc resolver.Services
	if deps.Broker != nil {
		svc = deps.Broker
	}
	res := resolver.New(log, deps.Config.Resolver, deps.Profile, cat, svc, deps.Config.Resolver.UploadsRoot)
	mgr := formmgr.New(log, deps.Config.Resolver, deps.Driver, disc.Rules(), deps.Profile)

	var orch *orchestrator.Orchestrator
	if deps.LLM != nil {
		orch = orchestrator.New(log, deps.Config.Engine, deps.Driver, disc, res, mgr, deps.LLM, deps.Profile)
	} else {
		orch = orchestrator.New(log, deps.Config.Engine, deps.Driver, disc, res, mgr, nil, deps.Profile)
	}

	return &Adapter{
		name:    desc.Name,
		desc:    desc,
		log:     log,
		drv:     deps.Driver,
		nav:     deps.Nav,
		markers: markersFor(desc.Name),
		disc:    disc,
		res:     res,
		orch:    orch,
	}, nil
}

// Name returns the platform name.
func (a *Adapter) Name() string { return a.name }

// Descriptor returns the platform descriptor.
func (a *Adapter) Descriptor() schemas.PlatformDescriptor { return a.desc }

// InitializePage brings the current application page into a known state.
func (a *Adapter) InitializePage(ctx context.Context) error {
	return a.orch.InitializePage(ctx)
}

// GetQuestions runs a discovery pass on the current page.
func (a *Adapter) GetQuestions(ctx context.Context, errorOnly bool) ([]schemas.Question, error) {
	return a.disc.GetQuestions(ctx, errorOnly)
}

// ResolveQuestions resolves a discovered set without executing anything.
// Used for inspection and dry runs.
func (a *Adapter) ResolveQuestions(ctx context.Context, questions []schemas.Question) []schemas.ResolutionResult {
	state := resolver.NewPageState()
	out := make([]schemas.ResolutionResult, len(questions))
	for i := range questions {
		out[i] = a.res.Resolve(ctx, &questions[i], state, nil)
	}
	return out
}

// StartExecution runs the application flow to a terminal outcome. Only one
// execution may run per adapter at a time.
func (a *Adapter) StartExecution(ctx context.Context, job *schemas.JobData) (schemas.ExecutionResult, error) {
	a.mu.Lock()
	if a.ctl != nil {
		a.mu.Unlock()
		return schemas.ExecutionPending, fmt.Errorf("execution already running")
	}
	ctl := execctl.New(ctx)
	a.ctl = ctl
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.ctl = nil
		a.mu.Unlock()
	}()

	if job != nil {
		a.orch.SetJobContext(job.Locations, job.Description, nil)
	}

	flow, err := a.orch.RunFlow(ctl.Context(), a, a.nav)
	result := a.outcome(flow, err)
	a.log.Info("execution finished",
		zap.String("result", string(result)), zap.Int("pages", flow.Pages), zap.Error(err))

	if result == schemas.ExecutionFailed {
		return result, err
	}
	return result, nil
}

// StopExecution aborts a running execution. A no-op when nothing runs.
func (a *Adapter) StopExecution(reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctl != nil {
		a.ctl.Abort(reason)
	}
}

// Running reports whether an execution is in flight.
func (a *Adapter) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctl != nil
}

// outcome maps a flow result and error to the persisted execution result.
// Captcha, challenge pages and resume-processing timeouts land in the default
// failed branch: aborted is stored as retryable pending, and a job blocked by
// a human check would be retried forever.
func (a *Adapter) outcome(flow orchestrator.FlowResult, err error) schemas.ExecutionResult {
	switch {
	case err == nil && flow.Applied:
		return schemas.ExecutionApplied
	case err == nil && (flow.Terminal == schemas.PageNotExist || flow.Terminal == schemas.PageJobSearch):
		return schemas.ExecutionJobExpired
	case execctl.IsAbort(err):
		return schemas.ExecutionAborted
	default:
		return schemas.ExecutionFailed
	}
}
