package dom

import (
	"context"
	"fmt"
	"time"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
)

// ResolveOptions tunes element resolution.
type ResolveOptions struct {
	// Validate is a JS predicate `el => bool` applied to each candidate.
	Validate string
	Timeout  time.Duration
}

// Resolve waits (mutation-driven, bounded by timeout) for the first element
// satisfying the locator and optional validate predicate, stamps it with the
// target attribute, and returns a locator addressing exactly that element.
// Resolution is the shared front half of every primitive: the element may not
// exist yet when the action is requested.
func (d *Driver) Resolve(ctx context.Context, loc schemas.Locator, opts ResolveOptions) (schemas.Locator, error) {
	if loc.IsZero() {
		return schemas.Locator{}, fmt.Errorf("%w: empty locator", ErrLocatorNotFound)
	}

	token := nextToken("ap")
	ok, err := d.poll(ctx, resolveJS(loc.CSS(), opts.Validate, token), d.actionTimeout(opts.Timeout))
	if err != nil {
		return schemas.Locator{}, err
	}
	if !ok {
		return schemas.Locator{}, fmt.Errorf("%w: %s", ErrLocatorNotFound, loc.CSS())
	}
	return schemas.Locator{Tag: token}, nil
}

// ResolveFirst resolves the first locator in the list that yields an element.
// Used for known-question fallback locators.
func (d *Driver) ResolveFirst(ctx context.Context, locs []schemas.Locator, opts ResolveOptions) (schemas.Locator, error) {
	if len(locs) == 0 {
		return schemas.Locator{}, fmt.Errorf("%w: no locators", ErrLocatorNotFound)
	}
	// Split the overall budget so one missing locator cannot starve the rest.
	per := d.actionTimeout(opts.Timeout) / time.Duration(len(locs))
	if per < 250*time.Millisecond {
		per = 250 * time.Millisecond
	}
	perOpts := opts
	perOpts.Timeout = per

	var lastErr error
	for _, loc := range locs {
		if err := ctx.Err(); err != nil {
			return schemas.Locator{}, err
		}
		resolved, err := d.Resolve(ctx, loc, perOpts)
		if err == nil {
			return resolved, nil
		}
		lastErr = err
	}
	return schemas.Locator{}, lastErr
}
