package watcher

import (
	"slices"
	"sync"
	"time"
	"unique"
)

// Debouncer coalesces bursts of file system events into a single batched
// callback per quiet window. Every Add rearms the window, so a sustained
// stream of events keeps pushing the callback out until the stream pauses.
type Debouncer struct {
	window time.Duration
	notify func(paths []string)

	mu      sync.Mutex
	pending map[unique.Handle[string]]struct{}
	timer   *time.Timer
}

// NewDebouncer creates a debouncer that invokes notify with the deduplicated,
// sorted batch of paths seen since the last callback.
func NewDebouncer(window time.Duration, notify func(paths []string)) *Debouncer {
	return &Debouncer{
		window:  window,
		notify:  notify,
		pending: make(map[unique.Handle[string]]struct{}),
	}
}

// Add records a path and rearms the quiet window. Repeated events for the
// same path within one window collapse via interned handles.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[unique.Make(path)] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.expire)
}

// drain empties the pending set and disarms the timer. Caller holds d.mu.
func (d *Debouncer) drain() []string {
	d.timer = nil
	if len(d.pending) == 0 {
		return nil
	}
	paths := make([]string, 0, len(d.pending))
	for h := range d.pending {
		paths = append(paths, h.Value())
	}
	clear(d.pending)
	slices.Sort(paths)
	return paths
}

func (d *Debouncer) expire() {
	d.mu.Lock()
	paths := d.drain()
	d.mu.Unlock()

	if len(paths) > 0 && d.notify != nil {
		go d.notify(paths)
	}
}

// Flush synchronously delivers any pending batch. Suitable for shutdown,
// where queued events must be handed off before the watcher stops.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil && !d.timer.Stop() {
		// The timer callback is already running; it owns the batch.
		d.mu.Unlock()
		return
	}
	paths := d.drain()
	d.mu.Unlock()

	if len(paths) > 0 && d.notify != nil {
		d.notify(paths)
	}
}
