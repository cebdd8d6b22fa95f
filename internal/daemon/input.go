package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ledge-desktop/ledge/internal/config"
	"github.com/ledge-desktop/ledge/internal/registry"
	"github.com/ledge-desktop/ledge/internal/signals"
	"github.com/ledge-desktop/ledge/internal/state"
)

// InputCallback receives each rebuilt arbiter input.
type InputCallback func(in state.Input, cause string)

// InputBuilder assembles arbiter input snapshots from the signal topics,
// the producer registry, and the feature configuration. It owns the two
// clock-driven facts the arbiter must never compute itself: whether the
// startup intro is still running and whether the music player has gone
// idle. Both are resolved here, by timers, before a snapshot is formed.
type InputBuilder struct {
	mu     sync.Mutex
	logger *slog.Logger

	hub *signals.Hub
	reg *registry.Registry

	features    config.FeatureConfig
	idleTimeout time.Duration

	helloRunning bool
	helloTimer   *time.Timer

	// Music idleness machine.
	musicSeen bool
	playing   bool
	present   bool
	idle      bool
	idleTimer *time.Timer

	onInput InputCallback
}

// NewInputBuilder creates a builder seeded from cfg.
func NewInputBuilder(hub *signals.Hub, reg *registry.Registry, cfg *config.DaemonConfig, logger *slog.Logger) *InputBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &InputBuilder{
		logger:      logger,
		hub:         hub,
		reg:         reg,
		features:    cfg.Features,
		idleTimeout: cfg.Music.IdleTimeout.Duration(),
	}
}

// SetInputCallback sets the function invoked with every rebuilt input.
func (b *InputBuilder) SetInputCallback(cb InputCallback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onInput = cb
}

// ApplyConfig replaces the feature toggles and idle timeout, then pushes a
// rebuilt input. A changed idle timeout applies from the next arming.
func (b *InputBuilder) ApplyConfig(cfg *config.DaemonConfig) {
	b.mu.Lock()
	b.features = cfg.Features
	b.idleTimeout = cfg.Music.IdleTimeout.Duration()
	b.mu.Unlock()

	b.Recompute("config-reload")
}

// StartHello marks the intro animation running and schedules its release.
// A non-positive duration disables the intro entirely.
func (b *InputBuilder) StartHello(d time.Duration) {
	if d <= 0 {
		return
	}

	b.mu.Lock()
	if b.helloTimer != nil {
		b.helloTimer.Stop()
	}
	b.helloRunning = true
	b.helloTimer = time.AfterFunc(d, b.helloDone)
	b.mu.Unlock()

	b.logger.Debug("hello animation started", "duration", d)
	b.Recompute("hello")
}

func (b *InputBuilder) helloDone() {
	b.mu.Lock()
	b.helloRunning = false
	b.helloTimer = nil
	b.mu.Unlock()

	b.logger.Debug("hello animation finished")
	b.Recompute("hello-done")
}

// ObserveMusic folds one music update into the idleness machine and pushes
// a rebuilt input. Playback cancels any idle countdown; a player going
// quiet arms one.
func (b *InputBuilder) ObserveMusic(m signals.Music) {
	b.mu.Lock()
	b.present = m.Present
	b.playing = m.Playing()

	if b.playing {
		b.musicSeen = true
		b.idle = false
		if b.idleTimer != nil {
			b.idleTimer.Stop()
			b.idleTimer = nil
		}
	} else if b.musicSeen && !b.idle && b.idleTimer == nil && b.idleTimeout > 0 {
		b.idleTimer = time.AfterFunc(b.idleTimeout, b.playerIdle)
	}
	b.mu.Unlock()

	b.Recompute("signal:music")
}

func (b *InputBuilder) playerIdle() {
	b.mu.Lock()
	b.idleTimer = nil
	if b.playing {
		// Resumed while the timer was in flight.
		b.mu.Unlock()
		return
	}
	b.idle = true
	b.mu.Unlock()

	b.logger.Debug("player went idle")
	b.Recompute("music-idle")
}

// Build assembles one input snapshot from current facts.
func (b *InputBuilder) Build() state.Input {
	b.mu.Lock()
	in := state.Input{
		HelloAnimationRunning: b.helloRunning,
		Playing:               b.playing,
		MusicLive:             b.present && b.musicSeen && !b.idle,
		PlayerIdle:            b.musicSeen && !b.playing && b.idle,
		MusicLiveActivity:     b.features.MusicLive,
		PowerNotices:          b.features.PowerNotices,
		InlineHUDStyle:        b.features.InlineHUD,
		HideOnClosed:          b.features.HideOnClosed,
		IdleFace:              b.features.IdleFace,
	}
	b.mu.Unlock()

	if u, ok := b.hub.SneakPeek.Latest(); ok {
		in.SneakPeek = u.Transient
	}
	if u, ok := b.hub.ExpandingView.Latest(); ok {
		in.ExpandingView = u.Transient
	}
	in.Winners = b.reg.ResolveAll()
	return in
}

// Recompute rebuilds the input and hands it to the callback. Open state and
// current view stay zero; the coordinator overlays those per display.
func (b *InputBuilder) Recompute(cause string) {
	b.mu.Lock()
	cb := b.onInput
	b.mu.Unlock()

	if cb == nil {
		return
	}
	cb(b.Build(), cause)
}

// Stop cancels pending timers.
func (b *InputBuilder) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.helloTimer != nil {
		b.helloTimer.Stop()
		b.helloTimer = nil
	}
	if b.idleTimer != nil {
		b.idleTimer.Stop()
		b.idleTimer = nil
	}
}
