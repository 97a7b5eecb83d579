package live

import (
	"sync"
	"time"
)

// DefaultDebounce is the refetch coalescing window.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer coalesces bursts of triggers into one trailing-edge call of fn.
// Each Trigger cancels any pending run and rearms the timer; only the last
// trigger within the window fires. There is no queue and no maximum-wait
// ceiling — acceptable because dashboard events are low-frequency.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	timer   *time.Timer
	stopped bool
}

// NewDebouncer wraps fn with the given delay. A non-positive delay falls
// back to DefaultDebounce.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules fn after the delay, replacing any pending schedule.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.run)
}

func (d *Debouncer) run() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	d.fn()
}

// Stop cancels any pending run; subsequent triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
