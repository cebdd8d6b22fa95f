package daemon

import (
	"log/slog"
	"sync"

	"github.com/ledge-desktop/ledge/internal/signals"
	"github.com/ledge-desktop/ledge/internal/state"
)

// batteryZone classifies charge level against the configured thresholds.
type batteryZone int

const (
	zoneOK batteryZone = iota
	zoneLow
	zoneCritical
)

// String returns the string representation of batteryZone.
func (z batteryZone) String() string {
	switch z {
	case zoneOK:
		return "ok"
	case zoneLow:
		return "low"
	case zoneCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// BatteryNotifier turns battery telemetry into power notices. It announces
// plug state flips and threshold crossings exactly once per crossing:
// a battery draining through 20% produces one low notice, not one per
// percentage update.
type BatteryNotifier struct {
	mu       sync.Mutex
	logger   *slog.Logger
	enabled  bool
	low      float64
	critical float64

	// Last announced zone and plug state.
	zone     batteryZone
	charging bool
	seeded   bool

	publish func(t state.Transient)
}

// NewBatteryNotifier creates a notifier with notices disabled until
// UpdateConfig enables them.
func NewBatteryNotifier(logger *slog.Logger) *BatteryNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatteryNotifier{logger: logger}
}

// SetPublishHandler sets the function that receives each notice.
func (n *BatteryNotifier) SetPublishHandler(fn func(t state.Transient)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.publish = fn
}

// UpdateConfig replaces the notice toggle and thresholds.
func (n *BatteryNotifier) UpdateConfig(enabled bool, low, critical float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
	n.low = low
	n.critical = critical
}

// Observe folds one battery update into the notifier. The first update
// seeds the baseline silently so a daemon started on a half-empty battery
// does not open with a notice.
func (n *BatteryNotifier) Observe(b signals.Battery) {
	n.mu.Lock()

	if !n.enabled || !b.Present {
		n.seeded = false
		n.mu.Unlock()
		return
	}

	chargingNow := b.State == signals.BatteryCharging || b.State == signals.BatteryFull
	zoneNow := n.zoneForLocked(b.Percentage)

	if !n.seeded {
		n.seeded = true
		n.charging = chargingNow
		n.zone = zoneNow
		n.mu.Unlock()
		return
	}

	var notice *state.Transient
	switch {
	case chargingNow && !n.charging:
		notice = &state.Transient{Show: true, Event: state.EventBattery, Value: b.Percentage / 100, Icon: "battery-charging"}
	case !chargingNow && n.charging:
		notice = &state.Transient{Show: true, Event: state.EventBattery, Value: b.Percentage / 100, Icon: "battery-discharging"}
	case !chargingNow && zoneNow > n.zone:
		icon := "battery-low"
		if zoneNow == zoneCritical {
			icon = "battery-critical"
		}
		notice = &state.Transient{Show: true, Event: state.EventBattery, Value: b.Percentage / 100, Icon: icon}
	}

	n.charging = chargingNow
	n.zone = zoneNow
	publish := n.publish
	n.mu.Unlock()

	if notice == nil || publish == nil {
		return
	}
	n.logger.Info("power notice", "icon", notice.Icon, "percentage", b.Percentage, "zone", zoneNow.String())
	publish(*notice)
}

// zoneForLocked classifies a percentage. Caller must hold the lock.
func (n *BatteryNotifier) zoneForLocked(pct float64) batteryZone {
	switch {
	case pct <= n.critical:
		return zoneCritical
	case pct <= n.low:
		return zoneLow
	default:
		return zoneOK
	}
}
