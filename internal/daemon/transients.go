package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ledge-desktop/ledge/internal/signals"
	"github.com/ledge-desktop/ledge/internal/state"
)

// TransientScheduler publishes transient descriptors and clears them once
// their hold time elapses. Every scheduled clear is sequence-guarded: it
// captures the topic sequence at publish time and fires only if no newer
// publication superseded it, so a rapid burst of volume changes never has
// an old clear cutting the latest one short.
type TransientScheduler struct {
	mu     sync.Mutex
	logger *slog.Logger
	hub    *signals.Hub

	peekHold      time.Duration
	expandingHold time.Duration

	// Pending clear timers, keyed by lane.
	timers map[string]*time.Timer

	stopped bool
}

// NewTransientScheduler creates a scheduler over the hub's transient topics.
func NewTransientScheduler(hub *signals.Hub, logger *slog.Logger) *TransientScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransientScheduler{
		logger: logger,
		hub:    hub,
		timers: make(map[string]*time.Timer),
	}
}

// UpdateHolds replaces the hold durations. A zero hold pins the transient
// until the next publication replaces it.
func (s *TransientScheduler) UpdateHolds(peek, expanding time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peekHold = peek
	s.expandingHold = expanding
}

// Peek publishes a sneak-peek descriptor and schedules its clear.
func (s *TransientScheduler) Peek(t state.Transient) error {
	s.mu.Lock()
	hold := s.peekHold
	s.mu.Unlock()
	return s.publish("peek", s.hub.SneakPeek, t, hold)
}

// Notice publishes an expanding-view descriptor and schedules its clear.
func (s *TransientScheduler) Notice(t state.Transient) error {
	s.mu.Lock()
	hold := s.expandingHold
	s.mu.Unlock()
	return s.publish("notice", s.hub.ExpandingView, t, hold)
}

func (s *TransientScheduler) publish(lane string, topic *signals.TransientTopic, t state.Transient, hold time.Duration) error {
	u, err := topic.Publish(t)
	if err != nil {
		return err
	}
	s.logger.Debug("transient published", "lane", lane, "event", string(t.Event), "show", t.Show, "seq", u.Seq)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Any pending clear is for an older publication now.
	if prev := s.timers[lane]; prev != nil {
		prev.Stop()
		delete(s.timers, lane)
	}
	if s.stopped || !t.Show || hold <= 0 {
		return nil
	}

	seq := u.Seq
	s.timers[lane] = time.AfterFunc(hold, func() {
		s.clear(lane, topic, seq)
	})
	return nil
}

// clear retires one publication. The sequence check makes a stale timer
// harmless: if anything published after us, the newer publication owns
// the lane.
func (s *TransientScheduler) clear(lane string, topic *signals.TransientTopic, seq uint64) {
	s.mu.Lock()
	delete(s.timers, lane)
	stopped := s.stopped
	s.mu.Unlock()

	if stopped || topic.Seq() != seq {
		return
	}

	if _, err := topic.Publish(state.Transient{}); err != nil {
		s.logger.Warn("failed to clear transient", "lane", lane, "error", err)
		return
	}
	s.logger.Debug("transient cleared", "lane", lane, "seq", seq)
}

// Stop cancels all pending clears. Further publishes still go through but
// schedule nothing.
func (s *TransientScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for lane, timer := range s.timers {
		timer.Stop()
		delete(s.timers, lane)
	}
}
