package adapter

import (
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/ledge-desktop/ledge/internal/signals"
)

const (
	upowerBusName     = "org.freedesktop.UPower"
	upowerPath        = dbus.ObjectPath("/org/freedesktop/UPower")
	upowerDevicePath  = dbus.ObjectPath("/org/freedesktop/UPower/devices/DisplayDevice")
	upowerDeviceIface = "org.freedesktop.UPower.Device"
)

// BatteryHandler receives the merged battery state after each change.
type BatteryHandler func(b signals.Battery)

// BatteryChange is the delta carried by one PropertiesChanged signal.
// Nil fields were not part of the signal.
type BatteryChange struct {
	Present     *bool
	Percentage  *float64
	State       *signals.BatteryState
	OnBattery   *bool
	TimeToEmpty *time.Duration
	TimeToFull  *time.Duration
}

// apply merges the change into a battery snapshot.
func (c BatteryChange) apply(b signals.Battery) signals.Battery {
	if c.Present != nil {
		b.Present = *c.Present
	}
	if c.Percentage != nil {
		b.Percentage = *c.Percentage
	}
	if c.State != nil {
		b.State = *c.State
	}
	if c.OnBattery != nil {
		b.OnBattery = *c.OnBattery
	}
	if c.TimeToEmpty != nil {
		b.TimeToEmpty = *c.TimeToEmpty
	}
	if c.TimeToFull != nil {
		b.TimeToFull = *c.TimeToFull
	}
	return b
}

// DeviceState maps UPower's device state enum to a battery state.
func DeviceState(raw uint32) signals.BatteryState {
	switch raw {
	case 1, 5: // charging, pending charge
		return signals.BatteryCharging
	case 2, 3, 6: // discharging, empty, pending discharge
		return signals.BatteryDischarging
	case 4: // fully charged
		return signals.BatteryFull
	default:
		return signals.BatteryUnknown
	}
}

// ParseUPowerProperties extracts a battery change from a
// PropertiesChanged signal on the UPower display device or the UPower
// root object. Returns ok=false for signals that carry nothing of
// interest.
func ParseUPowerProperties(sig *dbus.Signal) (BatteryChange, bool) {
	if sig == nil || sig.Name != propertiesIface+".PropertiesChanged" {
		return BatteryChange{}, false
	}
	if len(sig.Body) < 2 {
		return BatteryChange{}, false
	}

	iface, ok := sig.Body[0].(string)
	if !ok {
		return BatteryChange{}, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return BatteryChange{}, false
	}

	switch iface {
	case upowerDeviceIface:
		if sig.Path != upowerDevicePath {
			return BatteryChange{}, false
		}
		return changeFromDevice(changed)
	case upowerBusName:
		if sig.Path != upowerPath {
			return BatteryChange{}, false
		}
		return changeFromDaemon(changed)
	}
	return BatteryChange{}, false
}

// changeFromDevice reads display-device properties. Shared by the signal
// path and the GetAll seed.
func changeFromDevice(props map[string]dbus.Variant) (BatteryChange, bool) {
	var change BatteryChange
	found := false

	if v, ok := props["IsPresent"]; ok {
		if b, ok := v.Value().(bool); ok {
			change.Present = &b
			found = true
		}
	}
	if v, ok := props["Percentage"]; ok {
		if pct, ok := v.Value().(float64); ok {
			change.Percentage = &pct
			found = true
		}
	}
	if v, ok := props["State"]; ok {
		if raw, ok := v.Value().(uint32); ok {
			state := DeviceState(raw)
			change.State = &state
			found = true
		}
	}
	if v, ok := props["TimeToEmpty"]; ok {
		if secs, ok := v.Value().(int64); ok {
			d := time.Duration(secs) * time.Second
			change.TimeToEmpty = &d
			found = true
		}
	}
	if v, ok := props["TimeToFull"]; ok {
		if secs, ok := v.Value().(int64); ok {
			d := time.Duration(secs) * time.Second
			change.TimeToFull = &d
			found = true
		}
	}

	return change, found
}

// changeFromDaemon reads UPower root properties.
func changeFromDaemon(props map[string]dbus.Variant) (BatteryChange, bool) {
	if v, ok := props["OnBattery"]; ok {
		if b, ok := v.Value().(bool); ok {
			return BatteryChange{OnBattery: &b}, true
		}
	}
	return BatteryChange{}, false
}

// UPowerWatcher tracks the display device on the system bus and reports
// merged battery state.
type UPowerWatcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	conn    *dbus.Conn
	handler BatteryHandler

	current signals.Battery

	sigCh   chan *dbus.Signal
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewUPowerWatcher creates a watcher. A nil conn connects to the system
// bus on Start.
func NewUPowerWatcher(conn *dbus.Conn, logger *slog.Logger) *UPowerWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &UPowerWatcher{
		logger: logger,
		conn:   conn,
	}
}

// SetBatteryHandler sets the callback for battery state changes.
func (w *UPowerWatcher) SetBatteryHandler(handler BatteryHandler) {
	w.handler = handler
}

// Current returns the latest merged battery state.
func (w *UPowerWatcher) Current() signals.Battery {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Start subscribes to power property changes and seeds state with an
// initial device read.
func (w *UPowerWatcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if w.conn == nil {
		conn, err := dbus.SystemBus()
		if err != nil {
			return &AdapterError{
				Source:  "upower",
				Message: "failed to connect to system bus",
				Err:     err,
			}
		}
		w.conn = conn
	}

	err := w.conn.AddMatchSignal(
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchObjectPath(upowerDevicePath),
	)
	if err != nil {
		return &AdapterError{
			Source:  "upower",
			Message: "failed to match device changes",
			Err:     err,
		}
	}

	err = w.conn.AddMatchSignal(
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchObjectPath(upowerPath),
	)
	if err != nil {
		return &AdapterError{
			Source:  "upower",
			Message: "failed to match daemon changes",
			Err:     err,
		}
	}

	w.mu.Lock()
	w.sigCh = make(chan *dbus.Signal, 32)
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true
	w.mu.Unlock()

	w.conn.Signal(w.sigCh)
	w.seedDevice()

	go w.watch()

	w.logger.Debug("started UPower watcher")
	return nil
}

// seedDevice reads the display device and daemon state once.
func (w *UPowerWatcher) seedDevice() {
	obj := w.conn.Object(upowerBusName, upowerDevicePath)

	var props map[string]dbus.Variant
	if err := obj.Call(propertiesIface+".GetAll", 0, upowerDeviceIface).Store(&props); err != nil {
		w.logger.Warn("failed to read power device", "error", err)
		return
	}

	change, ok := changeFromDevice(props)
	if !ok {
		return
	}

	var onBattery bool
	root := w.conn.Object(upowerBusName, upowerPath)
	if v, err := root.GetProperty(upowerBusName + ".OnBattery"); err == nil {
		if b, ok := v.Value().(bool); ok {
			onBattery = b
			change.OnBattery = &onBattery
		}
	}

	w.mu.Lock()
	w.current = change.apply(w.current)
	battery := w.current
	handler := w.handler
	w.mu.Unlock()

	if handler != nil {
		handler(battery)
	}
}

// watch dispatches bus signals until stopped.
func (w *UPowerWatcher) watch() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case sig, ok := <-w.sigCh:
			if !ok {
				return
			}
			w.handleSignal(sig)
		}
	}
}

// handleSignal merges one bus signal into the tracked state.
func (w *UPowerWatcher) handleSignal(sig *dbus.Signal) {
	change, ok := ParseUPowerProperties(sig)
	if !ok {
		return
	}

	w.mu.Lock()
	w.current = change.apply(w.current)
	battery := w.current
	handler := w.handler
	w.mu.Unlock()

	if handler != nil {
		handler(battery)
	}
}

// Stop unsubscribes and waits for the dispatch goroutine.
func (w *UPowerWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.conn.RemoveSignal(w.sigCh)
	close(w.stopCh)

	// Wait for goroutine to finish
	<-w.doneCh

	w.logger.Debug("stopped UPower watcher")
}
