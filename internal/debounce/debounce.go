// Package debounce delays propagation of a rapidly-changing value until it
// has been stable for a fixed duration. It backs the search-as-you-type
// fields so a keystroke burst produces a single lookup.
package debounce

import (
	"sync"
	"time"
)

// Debouncer forwards the most recent value passed to Set to fn once no new
// value has arrived for the configured delay. A zero delay still defers
// delivery to a separate goroutine tick rather than calling fn inline, so
// callers can rely on Set never invoking fn synchronously.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// New creates a Debouncer that calls fn with the settled value.
// Negative delays are treated as zero.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	if delay < 0 {
		delay = 0
	}
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Set submits a new raw value. Any pending delivery is cancelled and the
// delay restarts from now.
func (d *Debouncer[T]) Set(value T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if stopped {
			return
		}
		d.fn(value)
	})
}

// Stop cancels any pending delivery. After Stop returns no further calls to
// fn are started; Set becomes a no-op. Safe to call multiple times.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
