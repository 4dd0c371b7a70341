// Package orchestrator drives the bounded gather/resolve/execute loop for one
// application page and the multi-page advance until submission or a terminal
// outcome.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/discovery"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/dom"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/profile"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/resolver"
)

// browser is the slice of the dom driver the orchestrator needs.
type browser interface {
	Click(ctx context.Context, loc schemas.Locator, opts dom.ClickOptions) (dom.ClickResult, error)
	ClickNth(ctx context.Context, loc schemas.Locator, idx int, opts dom.ClickOptions) (dom.ClickResult, error)
	ClickAll(ctx context.Context, loc schemas.Locator, opts dom.ClickOptions) (int, error)
	VisibleCount(ctx context.Context, loc schemas.Locator) (int, error)
	WaitForStableDOM(ctx context.Context, opts dom.StableDOMOptions) (bool, error)
	CheckboxSelectBool(ctx context.Context, container schemas.Locator, state bool, opts dom.CheckboxOptions) (dom.ChoiceResult, error)
	GetOptions(ctx context.Context, kind schemas.FieldKind, loc schemas.Locator, timeout time.Duration) ([]schemas.OptionInfo, error)
}

// questionSource runs discovery passes.
type questionSource interface {
	GetQuestions(ctx context.Context, errorOnly bool) ([]schemas.Question, error)
	Rules() discovery.Rules
}

// answerer resolves one question.
type answerer interface {
	Resolve(ctx context.Context, q *schemas.Question, state *resolver.PageState, options []schemas.OptionInfo) schemas.ResolutionResult
}

// executor applies one resolved answer.
type executor interface {
	Execute(ctx context.Context, q *schemas.Question, res schemas.ResolutionResult, attempt, maxAttempts int) schemas.ExecResult
}

// llmService resolves escalated questions in one batched call.
type llmService interface {
	ResolveQuestions(ctx context.Context, req schemas.LLMResolveRequest) ([]schemas.LLMAnswer, error)
}

// Orchestrator runs the page loop for one tab.
type Orchestrator struct {
	log     *zap.Logger
	cfg     config.EngineConfig
	drv     browser
	source  questionSource
	resolve answerer
	exec    executor
	llm     llmService
	prof    *profile.Profile

	// Per-page state, scoped to this instance. Reset on page advance.
	state    *resolver.PageState
	attempts map[string]int
	failed   map[string]bool
	done     map[string]bool
}

// New creates an orchestrator. llm may be nil; escalations then fail their
// question.
func New(logger *zap.Logger, cfg config.EngineConfig, drv browser, source questionSource, res answerer, exec executor, llm llmService, prof *profile.Profile) *Orchestrator {
	o := &Orchestrator{
		log:     logger.Named("orchestrator"),
		cfg:     cfg,
		drv:     drv,
		source:  source,
		resolve: res,
		exec:    exec,
		llm:     llm,
		prof:    prof,
	}
	o.resetPageState()
	return o
}

func (o *Orchestrator) resetPageState() {
	o.state = resolver.NewPageState()
	o.attempts = map[string]int{}
	o.failed = map[string]bool{}
	o.done = map[string]bool{}
}

// SetJobContext seeds the page state with job metadata for the resolver.
func (o *Orchestrator) SetJobContext(locations []string, description string, skills []string) {
	o.state.JobLocations = locations
	o.state.JobDescription = description
	o.state.JobSkills = skills
}

// RunPage initializes the current application page, then runs bounded
// iterations of gather, resolve, execute and correct until every question is
// settled or the iteration budget is spent.
func (o *Orchestrator) RunPage(ctx context.Context) error {
	if err := o.InitializePage(ctx); err != nil {
		return fmt.Errorf("initialize page: %w", err)
	}

	errorOnly := false
	for iter := 0; iter < o.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		questions, err := o.source.GetQuestions(ctx, errorOnly)
		if err != nil {
			return fmt.Errorf("discovery: %w", err)
		}

		pending := o.pendingQuestions(questions)
		if len(pending) == 0 {
			o.log.Debug("page settled", zap.Int("iteration", iter))
			return nil
		}

		corrections := o.runIteration(ctx, pending)
		if err := o.applyCorrections(ctx, corrections); err != nil {
			return fmt.Errorf("apply corrections: %w", err)
		}

		// After the first full pass, only re-gather questions whose container
		// shows an error indicator, plus re-synced groups (full gather when a
		// correction changed the structure).
		errorOnly = len(corrections) == 0
	}
	return nil
}

// pendingQuestions filters out settled and permanently failed questions.
func (o *Orchestrator) pendingQuestions(questions []schemas.Question) []schemas.Question {
	out := make([]schemas.Question, 0, len(questions))
	for _, q := range questions {
		if o.done[q.ID] || o.failed[q.ID] {
			continue
		}
		if o.attempts[q.ID] >= o.cfg.MaxAttemptsPerQuestion {
			o.failed[q.ID] = true
			continue
		}
		out = append(out, q)
	}
	return out
}

// runIteration resolves and executes each pending question once, batching
// LLM escalations, and returns the structural corrections to apply.
func (o *Orchestrator) runIteration(ctx context.Context, questions []schemas.Question) []schemas.Correction {
	var corrections []schemas.Correction
	var escalated []escalation

	for i := range questions {
		q := &questions[i]
		if err := ctx.Err(); err != nil {
			return corrections
		}
		o.attempts[q.ID]++

		var options []schemas.OptionInfo
		if isChoiceKind(q.Kind) {
			opts, err := o.drv.GetOptions(ctx, q.Kind, o.choiceLocator(q), 0)
			if err != nil {
				o.log.Debug("option inspection failed", zap.String("label", q.Label), zap.Error(err))
			} else {
				options = opts
			}
		}

		res := o.resolve.Resolve(ctx, q, o.state, options)
		switch res.Status {
		case schemas.ResolutionSkipped:
			o.done[q.ID] = true
		case schemas.ResolutionStructuralFailure:
			if res.Correction != nil {
				corrections = append(corrections, *res.Correction)
			}
		case schemas.ResolutionError:
			o.noteError(q, res.Correction)
		case schemas.ResolutionNeedsLLM:
			escalated = append(escalated, escalation{question: *q, options: options})
		case schemas.ResolutionAnswered:
			o.execute(ctx, q, res)
		}
	}

	if len(escalated) > 0 {
		o.resolveEscalations(ctx, escalated)
	}
	return corrections
}

type escalation struct {
	question schemas.Question
	options  []schemas.OptionInfo
}

// resolveEscalations batches NEEDS_LLM questions into one service call and
// executes the returned answers.
func (o *Orchestrator) resolveEscalations(ctx context.Context, escalated []escalation) {
	if o.llm == nil {
		for _, e := range escalated {
			o.noteError(&e.question, nil)
		}
		return
	}

	req := schemas.LLMResolveRequest{}
	for _, e := range escalated {
		labels := make([]string, 0, len(e.options))
		for _, opt := range e.options {
			labels = append(labels, opt.Label)
		}
		req.Questions = append(req.Questions, schemas.LLMQuestion{
			ID:       e.question.ID,
			Label:    e.question.Label,
			SubLabel: e.question.SubLabel,
			Type:     string(e.question.Kind),
			Required: e.question.Required,
			Options:  labels,
		})
	}

	answers, err := o.llm.ResolveQuestions(ctx, req)
	if err != nil {
		o.log.Warn("LLM resolution failed", zap.Error(err), zap.Int("questions", len(escalated)))
		for _, e := range escalated {
			o.noteError(&e.question, nil)
		}
		return
	}

	byID := make(map[string]schemas.StringOrList, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a.Response
	}
	for _, e := range escalated {
		response, ok := byID[e.question.ID]
		if !ok || len(response) == 0 {
			o.noteError(&e.question, nil)
			continue
		}
		var value any
		if len(response) == 1 {
			value = response[0]
		} else {
			value = []string(response)
		}
		res := schemas.Answered(value, schemas.SourceLLM, e.question.Locators()...)
		o.execute(ctx, &e.question, res)
	}
}

// execute runs the form manager for an answered question and updates the
// bookkeeping.
func (o *Orchestrator) execute(ctx context.Context, q *schemas.Question, res schemas.ResolutionResult) {
	out := o.exec.Execute(ctx, q, res, o.attempts[q.ID], o.cfg.MaxAttemptsPerQuestion)
	if out.OK {
		o.done[q.ID] = true
		return
	}
	o.log.Debug("execution failed",
		zap.String("label", q.Label), zap.String("reason", out.Reason),
		zap.Int("attempt", o.attempts[q.ID]))
	if o.attempts[q.ID] >= o.cfg.MaxAttemptsPerQuestion {
		o.failed[q.ID] = true
	}
}

// noteError marks a question failed when its attempts are exhausted, applying
// a MARK_QUESTION_FAILED correction immediately.
func (o *Orchestrator) noteError(q *schemas.Question, c *schemas.Correction) {
	if c != nil && c.Kind == schemas.CorrectionMarkQuestionFailed {
		o.failed[q.ID] = true
		return
	}
	if o.attempts[q.ID] >= o.cfg.MaxAttemptsPerQuestion {
		o.failed[q.ID] = true
	}
}

func (o *Orchestrator) choiceLocator(q *schemas.Question) schemas.Locator {
	switch q.Kind {
	case schemas.FieldDropdown, schemas.FieldSelect:
		return q.BaseField().Locator()
	default:
		return q.ContainerLocator()
	}
}

func isChoiceKind(k schemas.FieldKind) bool {
	switch k {
	case schemas.FieldRadio, schemas.FieldCheckbox, schemas.FieldSelect,
		schemas.FieldDropdown, schemas.FieldMultiselect:
		return true
	}
	return false
}
