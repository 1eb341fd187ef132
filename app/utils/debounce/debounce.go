// Package debounce coalesces bursts of triggers into a single deferred
// execution, the way rapid URL edits collapse into one metadata fetch.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs the most recent function once no trigger has arrived for
// the configured window. Safe for concurrent use.
type Debouncer struct {
	window time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a debouncer with the given quiet window.
func New(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Trigger schedules fn after the quiet window, replacing any previously
// scheduled function.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, fn)
}

// Cancel drops any pending execution.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
