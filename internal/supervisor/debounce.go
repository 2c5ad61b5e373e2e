package supervisor

import (
	"sync"
	"time"
)

// Gate collapses bursts of change events into one delayed call. It owns a
// single timer slot: each Submit cancels whatever is pending and schedules a
// fresh timer, so at most one call is ever outstanding and it carries the
// most recent path.
type Gate struct {
	delay time.Duration
	fire  func(path string)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// NewGate returns a gate that calls fire(path) delay after the last Submit.
func NewGate(delay time.Duration, fire func(path string)) *Gate {
	return &Gate{delay: delay, fire: fire}
}

// Submit (re)starts the window for path.
func (g *Gate) Submit(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	if g.timer != nil {
		g.timer.Stop()
	}
	g.gen++
	gen := g.gen
	g.timer = time.AfterFunc(g.delay, func() { g.expire(gen, path) })
}

func (g *Gate) expire(gen uint64, path string) {
	g.mu.Lock()
	// A timer whose Stop lost the race with a newer Submit finds a newer gen.
	if g.stopped || gen != g.gen || g.timer == nil {
		g.mu.Unlock()
		return
	}
	g.timer = nil
	g.mu.Unlock()
	g.fire(path)
}

// Cancel drops the pending call, if any, and reports whether one existed.
func (g *Gate) Cancel() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelLocked()
}

func (g *Gate) cancelLocked() bool {
	if g.timer == nil {
		return false
	}
	g.timer.Stop()
	g.timer = nil
	g.gen++
	return true
}

// Stop cancels the pending call and ignores every later Submit.
func (g *Gate) Stop() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	return g.cancelLocked()
}

// Pending reports whether a call is scheduled.
func (g *Gate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timer != nil
}
