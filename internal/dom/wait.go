package dom

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/internal/execctl"
)

// Predicate is an async page condition. Combinators below compose them.
type Predicate func(ctx context.Context) (bool, error)

// And evaluates truthy when every predicate does.
func And(preds ...Predicate) Predicate {
	return func(ctx context.Context) (bool, error) {
		for _, p := range preds {
			ok, err := p(ctx)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// Or evaluates truthy when any predicate does.
func Or(preds ...Predicate) Predicate {
	return func(ctx context.Context) (bool, error) {
		for _, p := range preds {
			ok, err := p(ctx)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(ctx context.Context) (bool, error) {
		ok, err := p(ctx)
		return !ok, err
	}
}

// Exists is a predicate over element presence.
func (d *Driver) Exists(selector string) Predicate {
	return func(ctx context.Context) (bool, error) {
		var n int
		if err := d.eval(ctx, countJS(selector), &n); err != nil {
			return false, err
		}
		return n > 0, nil
	}
}

// Visible is a predicate over visible element presence.
func (d *Driver) Visible(selector string) Predicate {
	return func(ctx context.Context) (bool, error) {
		var n int
		if err := d.eval(ctx, visibleCountJS(selector), &n); err != nil {
			return false, err
		}
		return n > 0, nil
	}
}

// WaitUntil polls the predicate (with a mutation-length interval) until it
// resolves truthy or the timeout elapses. Returns false on timeout.
func (d *Driver) WaitUntil(ctx context.Context, pred Predicate, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	interval := 150 * time.Millisecond
	for {
		ok, err := pred(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		if err := execctl.Sleep(ctx, interval); err != nil {
			return false, err
		}
	}
}

// WaitExpr waits for a raw JS expression, mutation-driven.
func (d *Driver) WaitExpr(ctx context.Context, expr string, timeout time.Duration) (bool, error) {
	return d.poll(ctx, expr, timeout)
}

// StableDOMOptions tunes WaitForStableDOM.
type StableDOMOptions struct {
	// RequiredStableChecks consecutive idle ticks before the DOM counts as
	// stable.
	RequiredStableChecks int
	CheckInterval        time.Duration
	Timeout              time.Duration
	// Padding is an extra delay after stability, for late style/layout work.
	Padding time.Duration
}

func (o *StableDOMOptions) fill(cfg stableDefaults) {
	if o.RequiredStableChecks <= 0 {
		o.RequiredStableChecks = cfg.checks
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = 300 * time.Millisecond
	}
	if o.Timeout <= 0 {
		o.Timeout = cfg.timeout
	}
}

type stableDefaults struct {
	checks  int
	timeout time.Duration
}

const armStabilityJS = `(() => {
	window.__apLastMutation = Date.now();
	if (window.__apStabObserver) window.__apStabObserver.disconnect();
	window.__apStabObserver = new MutationObserver(() => { window.__apLastMutation = Date.now(); });
	window.__apStabObserver.observe(document.documentElement,
		{subtree: true, childList: true, attributes: true, characterData: true});
	return true;
})()`

const lastMutationAgeJS = `Date.now() - (window.__apLastMutation || 0)`

// WaitForStableDOM resolves true once RequiredStableChecks consecutive check
// intervals pass without a DOM mutation, false if the timeout elapses first.
func (d *Driver) WaitForStableDOM(ctx context.Context, opts StableDOMOptions) (bool, error) {
	opts.fill(stableDefaults{
		checks:  defaultInt(d.cfg.StableChecks, 3),
		timeout: defaultDur(d.cfg.StableDOMTimeout, 20*time.Second),
	})

	if err := d.eval(ctx, armStabilityJS, nil); err != nil {
		return false, err
	}

	deadline := time.Now().Add(opts.Timeout)
	idle := 0
	for idle < opts.RequiredStableChecks {
		if time.Now().After(deadline) {
			d.log.Debug("DOM did not stabilize before timeout",
				zap.Duration("timeout", opts.Timeout), zap.Int("idle_ticks", idle))
			return false, nil
		}
		if err := execctl.Sleep(ctx, opts.CheckInterval); err != nil {
			return false, err
		}
		var ageMs float64
		if err := d.eval(ctx, lastMutationAgeJS, &ageMs); err != nil {
			return false, err
		}
		if time.Duration(ageMs)*time.Millisecond >= opts.CheckInterval {
			idle++
		} else {
			idle = 0
		}
	}

	if opts.Padding > 0 {
		if err := execctl.Sleep(ctx, opts.Padding); err != nil {
			return false, err
		}
	}
	return true, nil
}

func defaultInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func defaultDur(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
