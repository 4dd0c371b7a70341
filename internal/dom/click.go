package dom

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
)

// ClickOptions tunes Click.
type ClickOptions struct {
	// Timeout bounds both the resolution and the mutation wait.
	Timeout  time.Duration
	Validate string
}

// ClickResult reports a click outcome. Success means the document mutated in
// response; a click that provably changed nothing is not a success.
type ClickResult struct {
	Success bool
	Mutated bool
}

// Click resolves the locator, performs a synthetic click, then observes the
// document for any mutation within the timeout.
func (d *Driver) Click(ctx context.Context, loc schemas.Locator, opts ClickOptions) (ClickResult, error) {
	resolved, err := d.Resolve(ctx, loc, ResolveOptions{Validate: opts.Validate, Timeout: opts.Timeout})
	if err != nil {
		return ClickResult{}, err
	}

	if err := d.eval(ctx, armMutationJS, nil); err != nil {
		return ClickResult{}, err
	}

	var clicked bool
	if err := d.eval(ctx, clickJS(resolved.CSS()), &clicked); err != nil {
		return ClickResult{}, err
	}
	if !clicked {
		return ClickResult{}, ErrLocatorNotFound
	}

	mutated, err := d.poll(ctx, mutatedJS, d.actionTimeout(opts.Timeout))
	if err != nil {
		return ClickResult{}, err
	}
	return ClickResult{Success: mutated, Mutated: mutated}, nil
}

// ClickNth clicks the idx-th match of the locator in document order. Used
// when several identical affordances exist, such as per-row delete buttons in
// a repeating group.
func (d *Driver) ClickNth(ctx context.Context, loc schemas.Locator, idx int, opts ClickOptions) (ClickResult, error) {
	if err := d.eval(ctx, armMutationJS, nil); err != nil {
		return ClickResult{}, err
	}

	var clicked bool
	if err := d.eval(ctx, clickNthJS(loc.CSS(), idx), &clicked); err != nil {
		return ClickResult{}, err
	}
	if !clicked {
		return ClickResult{}, fmt.Errorf("%w: %s[%d]", ErrLocatorNotFound, loc.CSS(), idx)
	}

	mutated, err := d.poll(ctx, mutatedJS, d.actionTimeout(opts.Timeout))
	if err != nil {
		return ClickResult{}, err
	}
	return ClickResult{Success: mutated, Mutated: mutated}, nil
}

// clickAllCap bounds ClickAll regardless of matcher behavior.
const clickAllCap = 25

// ClickAll repeatedly clicks the first match of the locator until the match
// count reaches zero or no progress is detected. Used to drain repeated
// affordances such as "remove" buttons on pre-filled rows.
func (d *Driver) ClickAll(ctx context.Context, loc schemas.Locator, opts ClickOptions) (int, error) {
	clicks := 0
	stalls := 0
	prev := -1

	for i := 0; i < clickAllCap; i++ {
		if err := ctx.Err(); err != nil {
			return clicks, err
		}

		n, err := d.VisibleCount(ctx, loc)
		if err != nil {
			return clicks, err
		}
		if n == 0 {
			return clicks, nil
		}
		if prev >= 0 && n >= prev {
			stalls++
			if stalls >= 2 {
				d.log.Debug("ClickAll made no progress, stopping",
					zap.String("locator", loc.CSS()), zap.Int("remaining", n))
				return clicks, ErrNoProgress
			}
		} else {
			stalls = 0
		}
		prev = n

		if _, err := d.Click(ctx, loc, opts); err != nil {
			return clicks, err
		}
		clicks++

		if err := d.pause(ctx); err != nil {
			return clicks, err
		}
	}
	return clicks, ErrNoProgress
}
