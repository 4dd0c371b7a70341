// Package humanize produces the input cadence used by the DOM primitives.
// Frameworks on ATS pages drop events that arrive faster than a person could
// produce them, so typing and pauses follow a smoothed, slightly noisy rhythm
// rather than fixed intervals.
package humanize

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"

	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/execctl"
)

const (
	perlinAlpha = 2.0
	perlinBeta  = 2.0
	perlinN     = int32(3)

	minInterKey = 25 * time.Millisecond
	minHold     = 15 * time.Millisecond
)

// Cadence generates per-keystroke delays and cognitive pauses.
type Cadence struct {
	cfg   config.HumanizeConfig
	noise *perlin.Perlin

	mu  sync.Mutex
	rng *rand.Rand
	pos float64
}

// New creates a cadence generator. A zero seed picks a time-based one.
func New(cfg config.HumanizeConfig, seed int64) *Cadence {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Cadence{
		cfg:   cfg,
		noise: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinN, seed),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Enabled reports whether humanized pacing is on.
func (c *Cadence) Enabled() bool { return c != nil && c.cfg.Enabled }

// InterKey returns the delay before the next keystroke. Perlin noise gives a
// smooth drift in typing speed instead of white noise.
func (c *Cadence) InterKey() time.Duration {
	if !c.Enabled() {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pos += 0.17
	drift := c.noise.Noise1D(c.pos) * c.cfg.InterKeyJitterMs
	jitter := c.rng.NormFloat64() * (c.cfg.InterKeyJitterMs / 3)

	d := time.Duration(c.cfg.InterKeyMeanMs+drift+jitter) * time.Millisecond
	if d < minInterKey {
		d = minInterKey
	}
	return d
}

// Hold returns a key hold duration.
func (c *Cadence) Hold() time.Duration {
	if !c.Enabled() {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	d := time.Duration(c.cfg.KeyHoldMeanMs+c.rng.NormFloat64()*10) * time.Millisecond
	if d < minHold {
		d = minHold
	}
	return d
}

// Pause suspends for a cognitive pause, honoring cancellation.
func (c *Cadence) Pause(ctx context.Context) error {
	if !c.Enabled() {
		return ctx.Err()
	}
	c.mu.Lock()
	ms := c.cfg.PauseMeanMs + c.rng.NormFloat64()*(c.cfg.PauseMeanMs/4)
	c.mu.Unlock()
	if ms < 50 {
		ms = 50
	}
	return execctl.Sleep(ctx, time.Duration(ms)*time.Millisecond)
}
