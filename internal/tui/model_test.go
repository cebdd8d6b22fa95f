package tui

import (
	"encoding/json"
	"testing"

	godbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledge-desktop/ledge/internal/dbus"
	"github.com/ledge-desktop/ledge/internal/display"
	"github.com/ledge-desktop/ledge/internal/state"
)

func stateChangedSignal(t *testing.T, displayID string, payload dbus.StatePayload) *godbus.Signal {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &godbus.Signal{
		Name: dbus.DBusInterface + ".StateChanged",
		Path: godbus.ObjectPath(dbus.DBusPath),
		Body: []interface{}{displayID, string(data)},
	}
}

func TestParseSignal(t *testing.T) {
	t.Run("state_changed", func(t *testing.T) {
		sig := stateChangedSignal(t, "DP-1", dbus.StatePayload{
			State:     state.Open(state.ViewHome),
			ChinWidth: 320,
		})

		entry, ok := parseSignal(sig)
		require.True(t, ok)
		assert.Equal(t, "DP-1", entry.display)
		assert.Equal(t, "state", entry.kind)
		assert.Equal(t, "open/home chin=320", entry.detail)
		assert.False(t, entry.at.IsZero())
	})

	t.Run("state_changed_malformed_payload_kept_raw", func(t *testing.T) {
		sig := &godbus.Signal{
			Name: dbus.DBusInterface + ".StateChanged",
			Body: []interface{}{"DP-1", "{not json"},
		}

		entry, ok := parseSignal(sig)
		require.True(t, ok)
		assert.Equal(t, "{not json", entry.detail)
	})

	t.Run("surface_phase", func(t *testing.T) {
		sig := &godbus.Signal{
			Name: dbus.DBusInterface + ".SurfacePhase",
			Body: []interface{}{"DP-2", "positioned"},
		}

		entry, ok := parseSignal(sig)
		require.True(t, ok)
		assert.Equal(t, "DP-2", entry.display)
		assert.Equal(t, "phase", entry.kind)
		assert.Equal(t, "positioned", entry.detail)
	})

	t.Run("unrelated_signal_ignored", func(t *testing.T) {
		sig := &godbus.Signal{
			Name: "org.freedesktop.DBus.NameOwnerChanged",
			Body: []interface{}{"a", "b", "c"},
		}

		_, ok := parseSignal(sig)
		assert.False(t, ok)
	})
}

func TestUpdate_ReportClampsSelection(t *testing.T) {
	m := New(nil, nil)
	m.selected = 5

	report := &dbus.StatusReport{
		Displays: []display.ContextInfo{
			{Display: display.Display{ID: "DP-1"}},
		},
	}

	updated, _ := m.Update(reportMsg{report: report})
	got := updated.(Model)

	assert.Equal(t, 0, got.selected)
	require.NotNil(t, got.report)
	assert.Equal(t, "DP-1", got.report.Displays[0].Display.ID)
}

func TestUpdate_EventLogIsCapped(t *testing.T) {
	m := New(nil, nil)
	sig := stateChangedSignal(t, "DP-1", dbus.StatePayload{
		State: state.Closed(state.ContentIdle),
	})

	var mdl = m
	for i := 0; i < maxEvents+50; i++ {
		updated, _ := mdl.Update(signalMsg{sig: sig})
		mdl = updated.(Model)
	}

	assert.Len(t, mdl.events, maxEvents)
}

func TestViewDisplays_EmptyReport(t *testing.T) {
	m := New(nil, nil)
	assert.Equal(t, "No displays tracked", m.viewDisplays())
}

func TestBuildKeybindBar_RespectsWidth(t *testing.T) {
	m := New(nil, nil)

	// Narrow bar keeps only the highest-priority binds
	bar := stripANSI(m.buildKeybindBar(20, "displays"))
	assert.Equal(t, "q quit", bar)

	// Zero width disables the limit
	full := stripANSI(m.buildKeybindBar(0, "displays"))
	assert.Contains(t, full, "r refresh")
}

func TestStripANSI(t *testing.T) {
	styled := "\x1b[38;5;10mq\x1b[0m quit"
	assert.Equal(t, "q quit", stripANSI(styled))
}
