package display

// Display describes one attached physical display. ID must be stable
// across reconnects (model/serial derived); Name is the connector name and
// is informational only, since connectors are not stable across hot-plug.
type Display struct {
	ID      string  `json:"id"`
	Name    string  `json:"name,omitempty"`
	Bounds  Rect    `json:"bounds"`
	Scale   float64 `json:"scale,omitempty"`
	Focused bool    `json:"focused,omitempty"`
}

// Phase is a surface's lifecycle state on one display.
type Phase string

const (
	// PhaseUninitialized means no surface exists yet.
	PhaseUninitialized Phase = "uninitialized"
	// PhaseCreated means the surface exists but has no position.
	PhaseCreated Phase = "created"
	// PhasePositioned means the surface is placed and live.
	PhasePositioned Phase = "positioned"
	// PhaseLocked means the session is locked and the surface is held in
	// privacy mode.
	PhaseLocked Phase = "locked"
	// PhaseDestroyed is terminal; a reattached display gets a new context.
	PhaseDestroyed Phase = "destroyed"
)

// CanTransition reports whether a surface may move between two phases.
func CanTransition(from, to Phase) bool {
	switch from {
	case PhaseUninitialized:
		return to == PhaseCreated
	case PhaseCreated:
		return to == PhasePositioned || to == PhaseDestroyed
	case PhasePositioned:
		return to == PhaseLocked || to == PhaseDestroyed
	case PhaseLocked:
		return to == PhasePositioned || to == PhaseDestroyed
	case PhaseDestroyed:
		return false
	}
	return false
}

// Mode selects which displays carry a surface.
type Mode string

const (
	// ModeAll replicates the surface on every display.
	ModeAll Mode = "all"
	// ModePreferred shows the surface on one chosen display only.
	ModePreferred Mode = "preferred"
)

// ValidModes returns all valid mode names.
func ValidModes() []string {
	return []string{string(ModeAll), string(ModePreferred)}
}

// LockPolicy says what happens to surfaces when the session locks.
type LockPolicy string

const (
	// LockHide keeps surfaces alive in privacy mode.
	LockHide LockPolicy = "hide"
	// LockDestroy tears surfaces down until unlock.
	LockDestroy LockPolicy = "destroy"
)

// ValidLockPolicies returns all valid lock policy names.
func ValidLockPolicies() []string {
	return []string{string(LockHide), string(LockDestroy)}
}
