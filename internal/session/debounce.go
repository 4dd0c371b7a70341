package session

import (
	"sync"
	"time"
)

// debouncer suppresses repeats of a keyed event inside a window. Start, stop
// and resume signals arrive duplicated from UI double-fires and navigation
// event bursts; only the first one in the window acts.
type debouncer struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window: window,
		now:    time.Now,
		last:   map[string]time.Time{},
	}
}

// Allow reports whether the event may act, recording it when allowed.
func (d *debouncer) Allow(key string) bool {
	if d.window <= 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if prev, ok := d.last[key]; ok && now.Sub(prev) < d.window {
		return false
	}
	d.last[key] = now
	return true
}
