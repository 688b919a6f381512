// Package confirm implements the two-click guard used by destructive controls.
package confirm

import (
	"log/slog"
	"sync"
	"time"
)

// Guard runs its action only on a second click inside the window that the
// first click opened. Each control owns its own Guard.
type Guard struct {
	mu     sync.Mutex
	window time.Duration
	normal string
	armed  string
	action func()

	timer *time.Timer
	gen   uint64
}

func NewGuard(window time.Duration, normal, armed string, action func()) *Guard {
	return &Guard{window: window, normal: normal, armed: armed, action: action}
}

// Click arms the guard, or fires the action if it is already armed.
// It reports whether the action ran.
func (g *Guard) Click() bool {
	g.mu.Lock()
	if g.timer == nil {
		g.gen++
		gen := g.gen
		g.timer = time.AfterFunc(g.window, func() { g.expire(gen) })
		g.mu.Unlock()
		return false
	}

	g.disarm()
	action := g.action
	g.mu.Unlock()

	if action != nil {
		action()
	}
	return true
}

func (g *Guard) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timer != nil
}

func (g *Guard) Label() string {
	if g.Armed() {
		return g.armed
	}
	return g.normal
}

// Reset disarms without running the action. No timer callback fires after it.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disarm()
}

// disarm must be called with g.mu held.
func (g *Guard) disarm() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.gen++
}

func (g *Guard) expire(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	// A timer that lost the race with Stop must not disarm a newer arming.
	if gen != g.gen {
		return
	}
	g.timer = nil
	slog.Debug("Confirm window elapsed", "component", "confirm", "label", g.normal)
}
