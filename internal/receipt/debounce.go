package receipt

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers per key: each Trigger resets the
// key's timer, and the callback runs once after the delay elapses untouched.
type Debouncer struct {
	Delay time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// Trigger schedules fn to run after the configured delay, replacing any timer
// already pending for the key.
func (d *Debouncer) Trigger(key string, fn func()) {
	if d == nil || d.Delay <= 0 {
		fn()
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timers == nil {
		d.timers = make(map[string]*time.Timer)
	}
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.Delay, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// Stop cancels all pending timers and refuses further triggers.
func (d *Debouncer) Stop() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
