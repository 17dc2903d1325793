// Package deadline provides a cancellable one-shot timer used for bounded
// windows such as the WebSocket authentication handshake.
package deadline

import (
	"sync"
	"time"
)

// Deadline runs a callback once after a fixed duration unless cancelled
// first. Exactly one of the callback or a successful Cancel wins.
type Deadline struct {
	timer *time.Timer

	mu        sync.Mutex
	fired     bool
	cancelled bool
}

// After arms a deadline that invokes fn on its own goroutine after d.
func After(d time.Duration, fn func()) *Deadline {
	dl := &Deadline{}
	dl.timer = time.AfterFunc(d, func() {
		dl.mu.Lock()
		if dl.cancelled {
			dl.mu.Unlock()
			return
		}
		dl.fired = true
		dl.mu.Unlock()
		fn()
	})
	return dl
}

// Cancel stops the deadline. It reports true when the callback was prevented
// from running; false means the callback already ran or is running.
func (dl *Deadline) Cancel() bool {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.fired {
		return false
	}
	dl.cancelled = true
	dl.timer.Stop()
	return true
}

// Fired reports whether the callback ran.
func (dl *Deadline) Fired() bool {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.fired
}
