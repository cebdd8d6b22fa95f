package state

import "github.com/ledge-desktop/ledge/internal/registry"

// Transient describes a short-lived event (volume change, track change,
// battery flip) that wants a moment on the compact surface.
type Transient struct {
	Show  bool      `json:"show"`
	Event EventKind `json:"event,omitempty"`
	Value float64   `json:"value,omitempty"`
	Icon  string    `json:"icon,omitempty"`
}

// Input is the immutable snapshot the arbiter evaluates. It is built fresh
// for every evaluation; nothing holds one across events. All time-dependent
// facts (player idleness, live-activity decay) are resolved by the builder
// before the snapshot is formed, so the arbiter itself never reads a clock.
type Input struct {
	// Open is whether the expanded surface is showing.
	Open bool
	// CurrentView is the view the expanded surface shows when open.
	CurrentView ViewID

	// HelloAnimationRunning is whether the startup intro is in progress.
	HelloAnimationRunning bool

	// SneakPeek is the pending transient preview, if any.
	SneakPeek Transient
	// ExpandingView is the pending expanding notification, if any.
	ExpandingView Transient

	// Playing is whether a media player is actively playing.
	Playing bool
	// MusicLive is whether music is playing or was recently active and has
	// not yet gone idle.
	MusicLive bool
	// PlayerIdle is whether the player has been inactive past the idle
	// timeout.
	PlayerIdle bool

	// Feature toggles, straight from configuration.
	MusicLiveActivity bool
	PowerNotices      bool
	InlineHUDStyle    bool
	HideOnClosed      bool
	IdleFace          bool

	// Winners holds the resolved producer per anchor slot.
	Winners registry.Resolution
}
