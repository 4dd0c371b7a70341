package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/dom"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/execctl"
)

var (
	// ErrCaptchaDetected means a CAPTCHA widget became visible and the flow
	// cannot proceed without a human.
	ErrCaptchaDetected = errors.New("captcha detected")
	// ErrChallengePage means an anti-bot interstitial replaced the page.
	ErrChallengePage = errors.New("challenge page detected")
	// ErrResumeProcessing means the upload-processing indicator never cleared
	// before the submit deadline.
	ErrResumeProcessing = errors.New("resume still processing")
	// ErrSubmitStuck means validation errors persisted through every recovery
	// pass.
	ErrSubmitStuck = errors.New("submission blocked by validation errors")
	// ErrPageBudget means the flow ran past the configured page limit without
	// reaching a terminal page.
	ErrPageBudget = errors.New("page budget exhausted")
)

// errValidation is the internal retry signal of the submit loop.
var errValidation = errors.New("validation errors after submit")

const processingPollInterval = 250 * time.Millisecond

// pageDetector classifies the currently rendered page.
type pageDetector interface {
	GetPage(ctx context.Context) (schemas.PageKind, error)
}

// navigator drives tab-level navigation, used to escape challenge pages.
type navigator interface {
	Back(ctx context.Context) error
	Reload(ctx context.Context) error
}

// FlowResult summarizes a completed application flow.
type FlowResult struct {
	Applied  bool             `json:"applied"`
	Pages    int              `json:"pages"`
	Terminal schemas.PageKind `json:"terminal"`
}

// SubmitPage clicks the page-advance control and verifies the page accepted
// it. Validation errors trigger bounded recovery passes that re-resolve only
// the questions whose containers show an error indicator.
func (o *Orchestrator) SubmitPage(ctx context.Context) error {
	for pass := 0; pass <= o.cfg.RecoveryPasses; pass++ {
		err := o.trySubmit(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errValidation) {
			return err
		}
		if pass == o.cfg.RecoveryPasses {
			break
		}
		o.log.Info("recovering from validation errors", zap.Int("pass", pass+1))
		if err := o.recoverErrors(ctx); err != nil {
			return err
		}
	}
	return ErrSubmitStuck
}

func (o *Orchestrator) trySubmit(ctx context.Context) error {
	rules := o.source.Rules()

	if rules.CaptchaSelector != "" {
		n, err := o.drv.VisibleCount(ctx, schemas.Locator{Selector: rules.CaptchaSelector})
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrCaptchaDetected
		}
	}

	// Workday re-shows the processing spinner at submit time while the resume
	// is parsed; advancing under it loses the upload.
	if rules.ProgressSelector != "" {
		if err := o.waitResumeProcessed(ctx, rules.ProgressSelector); err != nil {
			return err
		}
	}

	submitSel := ""
	for _, sel := range rules.SubmitSelectors {
		n, err := o.drv.VisibleCount(ctx, schemas.Locator{Selector: sel})
		if err != nil {
			return err
		}
		if n > 0 {
			submitSel = sel
			break
		}
	}
	// No visible submit control means the page already advanced.
	if submitSel == "" {
		return nil
	}

	if _, err := o.drv.Click(ctx, schemas.Locator{Selector: submitSel}, dom.ClickOptions{}); err != nil {
		return fmt.Errorf("click submit: %w", err)
	}
	if _, err := o.drv.WaitForStableDOM(ctx, dom.StableDOMOptions{Timeout: o.cfg.SubmitWaitTimeout}); err != nil {
		return err
	}

	for _, sel := range rules.ErrorSelectors {
		n, err := o.drv.VisibleCount(ctx, schemas.Locator{Selector: sel})
		if err != nil {
			return err
		}
		if n > 0 {
			o.log.Debug("validation errors after submit", zap.String("selector", sel), zap.Int("count", n))
			return errValidation
		}
	}

	// The submit control still being visible with no error indicators means
	// the platform silently rejected the advance. Treat it like a validation
	// failure so a recovery pass re-inspects the page.
	n, err := o.drv.VisibleCount(ctx, schemas.Locator{Selector: submitSel})
	if err != nil {
		return err
	}
	if n > 0 {
		return errValidation
	}
	return nil
}

// waitResumeProcessed polls until no upload-processing indicator is visible,
// bounded by the submit deadline.
func (o *Orchestrator) waitResumeProcessed(ctx context.Context, selector string) error {
	deadline := time.Now().Add(o.cfg.SubmitWaitTimeout)
	for {
		n, err := o.drv.VisibleCount(ctx, schemas.Locator{Selector: selector})
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrResumeProcessing
		}
		if err := execctl.Sleep(ctx, processingPollInterval); err != nil {
			return err
		}
	}
}

// recoverErrors runs one error-only resolution pass. Error-flagged questions
// get a fresh attempt budget since the prior answer, not the question, was
// rejected.
func (o *Orchestrator) recoverErrors(ctx context.Context) error {
	questions, err := o.source.GetQuestions(ctx, true)
	if err != nil {
		return err
	}
	for _, q := range questions {
		delete(o.done, q.ID)
		o.attempts[q.ID] = o.cfg.MaxAttemptsPerQuestion - 1
	}

	pending := o.pendingQuestions(questions)
	if len(pending) == 0 {
		return nil
	}
	corrections := o.runIteration(ctx, pending)
	return o.applyCorrections(ctx, corrections)
}

// RunFlow drives the whole application: classify the page, fill and submit
// application pages, and stop on a terminal page or when the page budget runs
// out.
func (o *Orchestrator) RunFlow(ctx context.Context, detector pageDetector, nav navigator) (FlowResult, error) {
	result := FlowResult{}

	for page := 0; page < o.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		kind, err := detector.GetPage(ctx)
		if err != nil {
			return result, fmt.Errorf("classify page: %w", err)
		}
		result.Terminal = kind

		switch kind {
		case schemas.PageApplication:
			if err := o.RunPage(ctx); err != nil {
				return result, err
			}
			if err := o.SubmitPage(ctx); err != nil {
				return result, err
			}
			result.Pages++
			o.advancePageState()

		case schemas.PageConfirmation:
			result.Applied = true
			return result, nil

		case schemas.PageJobSearch, schemas.PageNotExist:
			o.log.Info("terminal page reached", zap.String("kind", string(kind)))
			return result, nil

		case schemas.PageCloudflare:
			// Back off the interstitial before aborting so the tab is left on
			// a recoverable page.
			if nav != nil {
				_ = nav.Back(ctx)
				_ = nav.Reload(ctx)
			}
			return result, ErrChallengePage

		default:
			if _, err := o.drv.WaitForStableDOM(ctx, dom.StableDOMOptions{}); err != nil {
				return result, err
			}
		}
	}
	return result, ErrPageBudget
}

// advancePageState resets per-page bookkeeping while keeping the job context
// that spans all pages of one application.
func (o *Orchestrator) advancePageState() {
	locations := o.state.JobLocations
	description := o.state.JobDescription
	skills := o.state.JobSkills

	o.resetPageState()

	o.state.JobLocations = locations
	o.state.JobDescription = description
	o.state.JobSkills = skills
}
