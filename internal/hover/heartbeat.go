package hover

import (
	"log/slog"
	"sync"
	"time"
)

// Default heartbeat cadence.
const (
	// DefaultHeartbeatInterval is roughly 60 ticks per second.
	DefaultHeartbeatInterval = 16 * time.Millisecond
	// DefaultHintBurst is how long a hint keeps a parked heartbeat ticking,
	// comfortably longer than the enter debounce it has to drive.
	DefaultHintBurst = 250 * time.Millisecond
)

// HeartbeatConfig holds the heartbeat's timing.
type HeartbeatConfig struct {
	Interval time.Duration
	Burst    time.Duration
}

// withDefaults fills zero fields with the standard cadence.
func (c HeartbeatConfig) withDefaults() HeartbeatConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultHeartbeatInterval
	}
	if c.Burst <= 0 {
		c.Burst = DefaultHintBurst
	}
	return c
}

// Heartbeat drives one display's hover sampling. While armed it ticks at a
// fixed cadence; while parked it blocks with its timer stopped, so an idle
// closed surface costs nothing. Raw platform enter/exit notifications are
// delivered as Kick hints: a hint forces an immediate out-of-cycle tick and
// keeps a parked heartbeat ticking for a short burst, long enough for the
// enter debounce to confirm or reject real pointer presence. The tick
// remains the sole authority; a spurious hint only causes sampling, never
// a state change by itself.
type Heartbeat struct {
	mu     sync.Mutex
	logger *slog.Logger
	cfg    HeartbeatConfig

	// tick samples pointer truth and advances the controller.
	tick func(now time.Time)

	armed      bool
	burstUntil time.Time

	// Control channels
	stopCh chan struct{}
	doneCh chan struct{}
	kickCh chan struct{}

	running bool
}

// NewHeartbeat creates a stopped, parked heartbeat around a tick function.
func NewHeartbeat(cfg HeartbeatConfig, tick func(now time.Time), logger *slog.Logger) *Heartbeat {
	return &Heartbeat{
		logger: logger,
		cfg:    cfg.withDefaults(),
		tick:   tick,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		kickCh: make(chan struct{}, 1),
	}
}

// Start launches the heartbeat loop. Starting an already-running heartbeat
// is a no-op.
func (h *Heartbeat) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.stopCh = make(chan struct{})
	h.doneCh = make(chan struct{})
	h.mu.Unlock()

	go h.loop()

	h.logger.Debug("heartbeat started", "interval", h.cfg.Interval)
}

// Stop cancels the heartbeat and waits for the loop to finish. No tick
// runs after Stop returns.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.stopCh)
	h.mu.Unlock()

	// Wait for goroutine to finish
	<-h.doneCh
	h.logger.Debug("heartbeat stopped")
}

// Arm switches to continuous ticking. Called when the surface opens.
func (h *Heartbeat) Arm() {
	h.mu.Lock()
	h.armed = true
	h.mu.Unlock()
	h.wake()
}

// Park switches back to idle. Called once the surface is closed and the
// hover machine has settled Outside.
func (h *Heartbeat) Park() {
	h.mu.Lock()
	h.armed = false
	h.mu.Unlock()
}

// Armed reports whether the heartbeat is in continuous mode.
func (h *Heartbeat) Armed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.armed
}

// Kick requests an immediate tick and, if the heartbeat is parked, keeps
// it ticking for the configured burst.
func (h *Heartbeat) Kick() {
	h.mu.Lock()
	h.burstUntil = time.Now().Add(h.cfg.Burst)
	h.mu.Unlock()
	h.wake()
}

// wake nudges a parked loop without blocking.
func (h *Heartbeat) wake() {
	select {
	case h.kickCh <- struct{}{}:
	default:
	}
}

// active reports whether the loop should keep ticking right now.
func (h *Heartbeat) active(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.armed || now.Before(h.burstUntil)
}

// loop is the cooperative polling loop.
func (h *Heartbeat) loop() {
	defer close(h.doneCh)

	ticker := time.NewTicker(h.cfg.Interval)
	defer ticker.Stop()

	for {
		if h.active(time.Now()) {
			select {
			case <-h.stopCh:
				return
			case <-h.kickCh:
				h.tick(time.Now())
			case now := <-ticker.C:
				h.tick(now)
			}
			continue
		}

		// Parked: stop the timer entirely so idle cost is zero.
		ticker.Stop()
		select {
		case <-h.stopCh:
			return
		case <-h.kickCh:
			ticker.Reset(h.cfg.Interval)
			h.tick(time.Now())
		}
	}
}
