package listener

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultDebounce is the minimum spacing between accepted triggers.
const DefaultDebounce = 500 * time.Millisecond

// debouncer drops triggers that arrive too soon after the last
// accepted one. One gate covers every combination the listener owns,
// so alternating keys cannot slip through the window.
type debouncer struct {
	clock  clockwork.Clock
	window time.Duration

	mu   sync.Mutex
	last time.Time
}

func newDebouncer(clock clockwork.Clock, window time.Duration) *debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &debouncer{clock: clock, window: window}
}

// allow reports whether a trigger at the current instant may run. The
// window only advances on accepted triggers, so a burst of presses
// yields exactly one dispatch.
func (d *debouncer) allow() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	if !d.last.IsZero() && now.Sub(d.last) < d.window {
		return false
	}
	d.last = now
	return true
}
