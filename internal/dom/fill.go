package dom

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/execctl"
)

// FillOptions tunes FillInput.
type FillOptions struct {
	// DispatchFocus controls focus/blur dispatch around typing. Numeric
	// spin-buttons set this false upstream so frameworks do not round the
	// partial value on blur.
	DispatchFocus bool
	// DispatchKeys types character-by-character; when false the value is
	// only asserted through the native setter.
	DispatchKeys bool
	// Numeric marks spin-button semantics: the field is never cleared first
	// and verification compares numerically.
	Numeric bool
	Timeout time.Duration
	DelayMs int
}

// DefaultFillOptions is the common text-field configuration.
func DefaultFillOptions() FillOptions {
	return FillOptions{DispatchFocus: true, DispatchKeys: true}
}

// FillResult reports a fill outcome.
type FillResult struct {
	Success bool
	// Editor is the rich-editor adapter used, if any.
	Editor string
	// Final is the post-state value read back for verification.
	Final string
}

// FillInput writes value into an input, textarea or contenteditable host,
// enforcing framework-accepted state: type like a user, then re-assert the
// full value through the native property setter, then verify the post-state.
func (d *Driver) FillInput(ctx context.Context, loc schemas.Locator, value string, opts FillOptions) (FillResult, error) {
	resolved, err := d.Resolve(ctx, loc, ResolveOptions{Timeout: opts.Timeout})
	if err != nil {
		return FillResult{}, err
	}
	sel := resolved.CSS()

	var editor string
	if err := d.eval(ctx, detectEditorJS(sel), &editor); err != nil {
		return FillResult{}, err
	}
	if editor != "" {
		return d.fillEditor(ctx, sel, editor, value)
	}

	// Clear, except for numeric spin-buttons where a transient empty value
	// can be rejected or clamped by the framework.
	if !opts.Numeric {
		if err := d.eval(ctx, nativeSetJS(sel, ""), nil); err != nil {
			return FillResult{}, err
		}
	}

	if opts.DispatchFocus {
		if err := chromedp.Run(ctx, chromedp.Focus(sel, chromedp.ByQuery)); err != nil {
			return FillResult{}, err
		}
	}

	if opts.DispatchKeys {
		if err := d.typeKeys(ctx, sel, value, opts.DelayMs); err != nil {
			return FillResult{}, err
		}
	}

	// Re-assert the full value through the native setter to defeat
	// framework overwrites, and notify via input+change.
	if err := d.eval(ctx, nativeSetJS(sel, value), nil); err != nil {
		return FillResult{}, err
	}

	if opts.DispatchFocus {
		if err := d.eval(ctx, blurJS(sel), nil); err != nil {
			return FillResult{}, err
		}
	}

	var final string
	if err := d.eval(ctx, readValueJS(sel), &final); err != nil {
		return FillResult{}, err
	}

	ok := valuesEqual(value, final, opts.Numeric)
	if !ok {
		d.log.Debug("fill verification failed",
			zap.String("selector", sel),
			zap.String("want", value),
			zap.String("got", final))
	}
	return FillResult{Success: ok, Final: final}, nil
}

func (d *Driver) fillEditor(ctx context.Context, sel, editor, value string) (FillResult, error) {
	var ok bool
	if err := d.eval(ctx, editorSetJS(sel, editor, value), &ok); err != nil {
		return FillResult{}, err
	}
	if !ok {
		return FillResult{Editor: editor}, ErrFrameworkOverwrite
	}
	return FillResult{Success: true, Editor: editor}, nil
}

// typeKeys dispatches the value character-by-character so the page observes a
// realistic keydown/keypress/input/keyup sequence per character.
func (d *Driver) typeKeys(ctx context.Context, sel, value string, delayMs int) error {
	for _, r := range value {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := chromedp.Run(ctx, chromedp.SendKeys(sel, string(r), chromedp.ByQuery)); err != nil {
			return err
		}
		delay := time.Duration(delayMs) * time.Millisecond
		if delay == 0 && d.cad != nil {
			delay = d.cad.InterKey()
		}
		if delay > 0 {
			if err := execctl.Sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return nil
}

// valuesEqual compares the requested and post-state values; numeric fields
// compare by value so "07" accepted as "7" still verifies.
func valuesEqual(want, got string, numeric bool) bool {
	if numeric {
		w, werr := strconv.ParseFloat(strings.TrimSpace(want), 64)
		g, gerr := strconv.ParseFloat(strings.TrimSpace(got), 64)
		if werr == nil && gerr == nil {
			return w == g
		}
	}
	return strings.TrimSpace(want) == strings.TrimSpace(got)
}
