// Package dom implements the action primitives and stability utilities used
// to drive adversarial ATS pages: mutation-aware element resolution, verified
// widget drivers, and waits that tolerate framework-controlled re-renders.
package dom

import (
	"context"
	"errors"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/humanize"
)

const targetAttr = schemas.TargetAttr

// earlyExitFloor is the minimum similarity for the dropdown early-exit, even
// when the caller passes a lower threshold. Intentional: a lax caller
// threshold must not produce false "already selected" positives.
const earlyExitFloor = 95.0

// Driver owns the page-facing primitives for one tab. All methods take the
// tab's chromedp context; cancellation propagates through it cooperatively.
type Driver struct {
	log *zap.Logger
	cad *humanize.Cadence
	cfg config.BrowserConfig
}

// NewDriver creates a driver. cad may be nil to disable humanized pacing.
func NewDriver(logger *zap.Logger, cad *humanize.Cadence, cfg config.BrowserConfig) *Driver {
	return &Driver{
		log: logger.Named("dom"),
		cad: cad,
		cfg: cfg,
	}
}

func (d *Driver) actionTimeout(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if d.cfg.ActionTimeout > 0 {
		return d.cfg.ActionTimeout
	}
	return 10 * time.Second
}

// eval runs a JS expression on the tab and decodes the result into out.
// out may be nil when the result is irrelevant.
func (d *Driver) eval(ctx context.Context, expr string, out any) error {
	if out == nil {
		var discard any
		out = &discard
	}
	return chromedp.Run(ctx, chromedp.Evaluate(expr, out))
}

// poll waits for a JS expression to become truthy, re-evaluating on DOM
// mutations, bounded by timeout. Returns false on timeout, error on anything
// else (including cancellation).
func (d *Driver) poll(ctx context.Context, expr string, timeout time.Duration) (bool, error) {
	var res any
	err := chromedp.Run(ctx, chromedp.Poll(expr, &res,
		chromedp.WithPollingMutation(),
		chromedp.WithPollingTimeout(timeout),
	))
	if err != nil {
		if errors.Is(err, chromedp.ErrPollingTimeout) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Count returns the number of elements currently matching the locator.
func (d *Driver) Count(ctx context.Context, loc schemas.Locator) (int, error) {
	var n int
	if err := d.eval(ctx, countJS(loc.CSS()), &n); err != nil {
		return 0, err
	}
	return n, nil
}

// VisibleCount returns the number of visible elements matching the locator.
func (d *Driver) VisibleCount(ctx context.Context, loc schemas.Locator) (int, error) {
	var n int
	if err := d.eval(ctx, visibleCountJS(loc.CSS()), &n); err != nil {
		return 0, err
	}
	return n, nil
}

// Eval exposes expression evaluation for collaborators bound to this tab,
// such as the discovery pass.
func (d *Driver) Eval(ctx context.Context, expr string, out any) error {
	return d.eval(ctx, expr, out)
}

// OuterHTML captures the full page snapshot.
func (d *Driver) OuterHTML(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Location returns the tab's current URL.
func (d *Driver) Location(ctx context.Context) (string, error) {
	var url string
	if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Title returns the tab's current document title.
func (d *Driver) Title(ctx context.Context) (string, error) {
	var title string
	if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (d *Driver) pause(ctx context.Context) error {
	if d.cad == nil {
		return ctx.Err()
	}
	return d.cad.Pause(ctx)
}
