package dbus

import (
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/ledge-desktop/ledge/internal/display"
	"github.com/ledge-desktop/ledge/internal/registry"
	"github.com/ledge-desktop/ledge/internal/signals"
	"github.com/ledge-desktop/ledge/internal/state"
)

// StatusReport is the daemon snapshot returned by the Status method,
// serialized as JSON on the wire. Music, Battery, and Winners are nil
// until the matching source has published at least once.
type StatusReport struct {
	Version    string                `json:"version"`
	PID        int                   `json:"pid"`
	StartedAt  time.Time             `json:"started_at"`
	Locked     bool                  `json:"locked"`
	Shelf      bool                  `json:"shelf"`
	Inhibitors []string              `json:"inhibitors,omitempty"`
	Music      *signals.Music        `json:"music,omitempty"`
	Battery    *signals.Battery      `json:"battery,omitempty"`
	Winners    *registry.Resolution  `json:"winners,omitempty"`
	Displays   []display.ContextInfo `json:"displays"`
}

// Uptime returns how long the daemon has been running.
func (r StatusReport) Uptime() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	return time.Since(r.StartedAt)
}

// StatePayload is the renderer contract carried by the StateChanged
// signal: the authoritative display state plus the geometry facts
// derived from it.
type StatePayload struct {
	State         state.DisplayState `json:"state"`
	ChinWidth     int                `json:"chin_width"`
	OverlayChrome bool               `json:"overlay_chrome"`
}

// ParseEventKind validates a wire-level event kind string.
// Kind matching is case-insensitive and ignores surrounding whitespace.
func ParseEventKind(kind string) (state.EventKind, error) {
	k := strings.ToLower(strings.TrimSpace(kind))
	for _, valid := range state.ValidEventKinds() {
		if k == valid {
			return state.EventKind(k), nil
		}
	}
	return "", fmt.Errorf("unknown event kind %q (valid: %s)",
		kind, strings.Join(state.ValidEventKinds(), ", "))
}

// ParseStateChanged extracts the payload of a StateChanged signal.
// Returns ok=false for signals that are not well-formed StateChanged
// emissions.
func ParseStateChanged(sig *dbus.Signal) (displayID, stateJSON string, ok bool) {
	if sig == nil || sig.Name != DBusInterface+".StateChanged" {
		return "", "", false
	}
	if len(sig.Body) < 2 {
		return "", "", false
	}
	displayID, okID := sig.Body[0].(string)
	stateJSON, okState := sig.Body[1].(string)
	if !okID || !okState {
		return "", "", false
	}
	return displayID, stateJSON, true
}

// ParseSurfacePhase extracts the payload of a SurfacePhase signal.
func ParseSurfacePhase(sig *dbus.Signal) (displayID, phase string, ok bool) {
	if sig == nil || sig.Name != DBusInterface+".SurfacePhase" {
		return "", "", false
	}
	if len(sig.Body) < 2 {
		return "", "", false
	}
	displayID, okID := sig.Body[0].(string)
	phase, okPhase := sig.Body[1].(string)
	if !okID || !okPhase {
		return "", "", false
	}
	return displayID, phase, true
}
