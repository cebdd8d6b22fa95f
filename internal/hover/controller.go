package hover

import (
	"sync"
	"time"
)

// Phase is the hover state machine's current state.
type Phase string

const (
	// PhaseOutside means the pointer is not over the surface.
	PhaseOutside Phase = "outside"
	// PhaseEntering means the pointer arrived and the enter debounce runs.
	PhaseEntering Phase = "entering"
	// PhaseInside means sustained pointer presence was confirmed.
	PhaseInside Phase = "inside"
	// PhaseExiting means the pointer left and the exit delay runs.
	PhaseExiting Phase = "exiting"
)

// Default debounce timing.
const (
	DefaultEnterDelay     = 50 * time.Millisecond
	DefaultExitDelay      = 500 * time.Millisecond
	DefaultShelfExitDelay = 4 * time.Second
)

// Config holds the controller's debounce windows.
type Config struct {
	// EnterDelay is how long the pointer must stay inside before the
	// surface opens.
	EnterDelay time.Duration
	// ExitDelay is how long the pointer must stay outside before the
	// surface closes.
	ExitDelay time.Duration
	// ShelfExitDelay replaces ExitDelay while shelf mode is active, giving
	// the user time to gather dragged items.
	ShelfExitDelay time.Duration
}

// DefaultConfig returns the standard debounce timing.
func DefaultConfig() Config {
	return Config{
		EnterDelay:     DefaultEnterDelay,
		ExitDelay:      DefaultExitDelay,
		ShelfExitDelay: DefaultShelfExitDelay,
	}
}

// withDefaults fills zero fields with the standard timing.
func (c Config) withDefaults() Config {
	if c.EnterDelay <= 0 {
		c.EnterDelay = DefaultEnterDelay
	}
	if c.ExitDelay <= 0 {
		c.ExitDelay = DefaultExitDelay
	}
	if c.ShelfExitDelay <= 0 {
		c.ShelfExitDelay = DefaultShelfExitDelay
	}
	return c
}

type tickAction int

const (
	actionNone tickAction = iota
	actionOpen
	actionClose
)

// Controller is the per-display hover state machine. It is driven by
// Tick calls carrying an externally sampled "pointer inside the surface"
// truth; it never reads the pointer or a clock itself. Debounces are
// elapsed-time comparisons against the tick timestamps, so no independent
// timers exist to dangle.
type Controller struct {
	mu  sync.Mutex
	cfg Config

	phase Phase
	since time.Time

	shelfActive bool

	onOpen       func()
	onClose      func()
	preventClose func() bool
}

// New creates a Controller in the Outside phase. Zero config fields use
// the default timing.
func New(cfg Config) *Controller {
	return &Controller{
		cfg:   cfg.withDefaults(),
		phase: PhaseOutside,
	}
}

// SetOpenCallback sets the function fired when sustained presence confirms
// the surface should open.
func (c *Controller) SetOpenCallback(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onOpen = fn
}

// SetCloseCallback sets the function fired when sustained absence confirms
// the surface should close.
func (c *Controller) SetCloseCallback(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = fn
}

// SetPreventCloseCheck sets a guard sampled at close-fire time. While it
// returns true the close callback is suppressed and the machine stays in
// Exiting, so the close fires as soon as the guard clears.
func (c *Controller) SetPreventCloseCheck(fn func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preventClose = fn
}

// SetShelfActive toggles shelf mode, which lengthens the exit delay.
func (c *Controller) SetShelfActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shelfActive = active
}

// ShelfActive reports whether shelf mode is active.
func (c *Controller) ShelfActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shelfActive
}

// Phase returns the machine's current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Reset forces the machine back to Outside without firing callbacks. Used
// when the surface is closed programmatically so a stale exit cannot fire
// later.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseOutside
	c.since = time.Time{}
}

// Tick advances the machine with one sampled observation. inside must be
// the pointer's containment in the surface's full frame rectangle; callers
// with no valid frame pass false, which fails closed.
func (c *Controller) Tick(now time.Time, inside bool) {
	action, fire, guard := c.step(now, inside)

	switch action {
	case actionOpen:
		if fire != nil {
			fire()
		}
	case actionClose:
		if guard != nil && guard() {
			// Suppressed: the machine stays in Exiting and re-fires on a
			// later tick once the guard clears.
			return
		}
		if c.commitClose(now) && fire != nil {
			fire()
		}
	}
}

// step applies one transition under the lock and reports what, if
// anything, must happen after it is released.
func (c *Controller) step(now time.Time, inside bool) (tickAction, func(), func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseOutside:
		if inside {
			c.phase = PhaseEntering
			c.since = now
		}

	case PhaseEntering:
		if !inside {
			// Pointer left during the debounce: abort without firing.
			c.phase = PhaseOutside
		} else if now.Sub(c.since) >= c.cfg.EnterDelay {
			c.phase = PhaseInside
			return actionOpen, c.onOpen, nil
		}

	case PhaseInside:
		if !inside {
			c.phase = PhaseExiting
			c.since = now
		}

	case PhaseExiting:
		if inside {
			// Re-entry cancels the pending close without firing.
			c.phase = PhaseInside
		} else if now.Sub(c.since) >= c.exitDelayLocked() {
			// The guard must run outside the lock; the transition commits
			// afterwards if nothing intervened.
			return actionClose, c.onClose, c.preventClose
		}
	}
	return actionNone, nil, nil
}

// commitClose finalizes Exiting to Outside unless a reset or shelf-mode
// change intervened while the guard ran.
func (c *Controller) commitClose(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseExiting {
		return false
	}
	if now.Sub(c.since) < c.exitDelayLocked() {
		return false
	}
	c.phase = PhaseOutside
	return true
}

func (c *Controller) exitDelayLocked() time.Duration {
	if c.shelfActive {
		return c.cfg.ShelfExitDelay
	}
	return c.cfg.ExitDelay
}
