package adapter

import (
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledge-desktop/ledge/internal/signals"
)

// upowerDeviceSignal builds a PropertiesChanged signal from the display device.
func upowerDeviceSignal(props map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Path: upowerDevicePath,
		Name: propertiesIface + ".PropertiesChanged",
		Body: []interface{}{upowerDeviceIface, props, []string{}},
	}
}

func TestDeviceState(t *testing.T) {
	tests := []struct {
		raw      uint32
		expected signals.BatteryState
	}{
		{1, signals.BatteryCharging},
		{5, signals.BatteryCharging},
		{2, signals.BatteryDischarging},
		{3, signals.BatteryDischarging},
		{6, signals.BatteryDischarging},
		{4, signals.BatteryFull},
		{0, signals.BatteryUnknown},
		{99, signals.BatteryUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DeviceState(tt.raw), "raw state %d", tt.raw)
	}
}

func TestParseUPowerProperties_Device(t *testing.T) {
	sig := upowerDeviceSignal(map[string]dbus.Variant{
		"IsPresent":   dbus.MakeVariant(true),
		"Percentage":  dbus.MakeVariant(73.5),
		"State":       dbus.MakeVariant(uint32(2)),
		"TimeToEmpty": dbus.MakeVariant(int64(5400)),
	})

	change, ok := ParseUPowerProperties(sig)
	require.True(t, ok)
	require.NotNil(t, change.Present)
	assert.True(t, *change.Present)
	require.NotNil(t, change.Percentage)
	assert.Equal(t, 73.5, *change.Percentage)
	require.NotNil(t, change.State)
	assert.Equal(t, signals.BatteryDischarging, *change.State)
	require.NotNil(t, change.TimeToEmpty)
	assert.Equal(t, 90*time.Minute, *change.TimeToEmpty)
	assert.Nil(t, change.TimeToFull)
	assert.Nil(t, change.OnBattery)
}

func TestParseUPowerProperties_Daemon(t *testing.T) {
	sig := &dbus.Signal{
		Path: upowerPath,
		Name: propertiesIface + ".PropertiesChanged",
		Body: []interface{}{upowerBusName, map[string]dbus.Variant{
			"OnBattery": dbus.MakeVariant(true),
		}, []string{}},
	}

	change, ok := ParseUPowerProperties(sig)
	require.True(t, ok)
	require.NotNil(t, change.OnBattery)
	assert.True(t, *change.OnBattery)
	assert.Nil(t, change.Percentage)
}

func TestParseUPowerProperties_Rejected(t *testing.T) {
	tests := []struct {
		name string
		sig  *dbus.Signal
	}{
		{name: "nil signal", sig: nil},
		{
			name: "device interface from wrong path",
			sig: &dbus.Signal{
				Path: dbus.ObjectPath("/org/freedesktop/UPower/devices/battery_BAT0"),
				Name: propertiesIface + ".PropertiesChanged",
				Body: []interface{}{upowerDeviceIface, map[string]dbus.Variant{
					"Percentage": dbus.MakeVariant(50.0),
				}, []string{}},
			},
		},
		{
			name: "unrelated interface",
			sig: &dbus.Signal{
				Path: upowerDevicePath,
				Name: propertiesIface + ".PropertiesChanged",
				Body: []interface{}{"org.freedesktop.ColorManager", map[string]dbus.Variant{}, []string{}},
			},
		},
		{
			name: "no recognised properties",
			sig:  upowerDeviceSignal(map[string]dbus.Variant{"Vendor": dbus.MakeVariant("ACME")}),
		},
		{
			name: "wrong member",
			sig: &dbus.Signal{
				Path: upowerDevicePath,
				Name: upowerDeviceIface + ".Refreshed",
				Body: []interface{}{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseUPowerProperties(tt.sig)
			assert.False(t, ok)
		})
	}
}

func TestBatteryChange_Apply(t *testing.T) {
	current := signals.Battery{
		Present:    true,
		Percentage: 80,
		State:      signals.BatteryCharging,
		OnBattery:  false,
	}

	pct := 79.0
	st := signals.BatteryDischarging
	onBattery := true
	updated := BatteryChange{Percentage: &pct, State: &st, OnBattery: &onBattery}.apply(current)

	assert.Equal(t, 79.0, updated.Percentage)
	assert.Equal(t, signals.BatteryDischarging, updated.State)
	assert.True(t, updated.OnBattery)
	// Untouched fields carry over
	assert.True(t, updated.Present)
}

func TestUPowerWatcher_MergesSignals(t *testing.T) {
	w := NewUPowerWatcher(nil, testLogger())

	var updates []signals.Battery
	w.SetBatteryHandler(func(b signals.Battery) { updates = append(updates, b) })

	w.handleSignal(upowerDeviceSignal(map[string]dbus.Variant{
		"IsPresent":  dbus.MakeVariant(true),
		"Percentage": dbus.MakeVariant(60.0),
		"State":      dbus.MakeVariant(uint32(1)),
	}))
	w.handleSignal(upowerDeviceSignal(map[string]dbus.Variant{
		"Percentage": dbus.MakeVariant(61.0),
	}))

	require.Len(t, updates, 2)
	assert.Equal(t, 61.0, updates[1].Percentage)
	assert.Equal(t, signals.BatteryCharging, updates[1].State)
	assert.True(t, updates[1].Present)
	assert.Equal(t, signals.Battery{Present: true, Percentage: 61.0, State: signals.BatteryCharging}, w.Current())

	// Unparseable signals fire nothing
	w.handleSignal(&dbus.Signal{Name: "org.freedesktop.DBus.NameAcquired"})
	assert.Len(t, updates, 2)
}
