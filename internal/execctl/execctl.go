// Package execctl implements the cooperative cancellation model. One
// Controller exists per tab session; every suspension point checks it and
// raises the named abort failure, which terminators catch and map to the
// aborted execution result.
package execctl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrAborted is the named abort failure raised at suspension points.
var ErrAborted = errors.New("execution aborted")

// Controller scopes cancellation to one tab session. It is deliberately not a
// module global so two adapters can never collide.
type Controller struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	reason string
}

// New derives a controller from a parent context.
func New(parent context.Context) *Controller {
	ctx, cancel := context.WithCancel(parent)
	return &Controller{ctx: ctx, cancel: cancel}
}

// Context returns the controller's context, for threading through chromedp
// and network calls.
func (c *Controller) Context() context.Context { return c.ctx }

// Abort cancels the controller with a reason. Safe to call multiple times;
// the first reason wins.
func (c *Controller) Abort(reason string) {
	c.mu.Lock()
	if c.reason == "" {
		c.reason = reason
	}
	c.mu.Unlock()
	c.cancel()
}

// Reason returns the abort reason, if any.
func (c *Controller) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// ThrowIfAborted returns the named abort failure when the controller has been
// cancelled, nil otherwise. Called before each primitive and at every
// suspension point.
func (c *Controller) ThrowIfAborted() error {
	select {
	case <-c.ctx.Done():
		if r := c.Reason(); r != "" {
			return fmt.Errorf("%w: %s", ErrAborted, r)
		}
		return ErrAborted
	default:
		return nil
	}
}

// Sleep suspends for the given number of seconds, waking immediately on abort.
func (c *Controller) Sleep(seconds float64) error {
	return Sleep(c.ctx, time.Duration(seconds*float64(time.Second)))
}

// Sleep waits for d or until ctx is cancelled, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrAborted, context.Cause(ctx))
	case <-t.C:
		return nil
	}
}

// IsAbort reports whether err is (or wraps) the named abort failure or a
// context cancellation.
func IsAbort(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}
