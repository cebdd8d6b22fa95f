package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonitors(t *testing.T) {
	// Sample hyprctl -j monitors output
	jsonData := []byte(`[
		{
			"id": 0,
			"name": "eDP-1",
			"description": "Chimei Innolux 0x14D2",
			"make": "Chimei Innolux",
			"model": "0x14D2",
			"serial": "",
			"width": 2256,
			"height": 1504,
			"refreshRate": 59.999,
			"x": 0,
			"y": 0,
			"scale": 2.0,
			"focused": true,
			"disabled": false
		},
		{
			"id": 1,
			"name": "DP-3",
			"description": "Dell Inc. DELL U2720Q 77FRP13",
			"make": "Dell Inc.",
			"model": "DELL U2720Q",
			"serial": "77FRP13",
			"width": 3840,
			"height": 2160,
			"refreshRate": 60.0,
			"x": 1128,
			"y": 0,
			"scale": 1.5,
			"focused": false,
			"disabled": false
		},
		{
			"id": 2,
			"name": "HDMI-A-1",
			"description": "Mirror panel",
			"width": 1920,
			"height": 1080,
			"x": 0,
			"y": 0,
			"scale": 1.0,
			"disabled": true
		}
	]`)

	displays, err := ParseMonitors(jsonData)
	require.NoError(t, err)
	require.Len(t, displays, 2)

	// Identity comes from the description, never the connector name
	d1 := displays[0]
	assert.Equal(t, "Chimei Innolux 0x14D2", d1.ID)
	assert.Equal(t, "eDP-1", d1.Name)
	assert.True(t, d1.Focused)
	assert.Equal(t, 2.0, d1.Scale)

	// Physical pixels become logical layout size
	assert.Equal(t, 1128.0, d1.Bounds.W)
	assert.Equal(t, 752.0, d1.Bounds.H)

	d2 := displays[1]
	assert.Equal(t, "Dell Inc. DELL U2720Q 77FRP13", d2.ID)
	assert.Equal(t, 1128.0, d2.Bounds.X)
	assert.Equal(t, 2560.0, d2.Bounds.W)
	assert.Equal(t, 1440.0, d2.Bounds.H)
}

func TestParseMonitors_FallbackIdentity(t *testing.T) {
	jsonData := []byte(`[
		{
			"id": 0,
			"name": "DP-1",
			"description": "",
			"make": "Dell Inc.",
			"model": "U2720Q",
			"serial": "ABC123",
			"width": 1920,
			"height": 1080,
			"x": 0,
			"y": 0,
			"scale": 1.0
		},
		{
			"id": 1,
			"name": "DP-2",
			"description": "",
			"width": 1920,
			"height": 1080,
			"x": 1920,
			"y": 0,
			"scale": 1.0
		}
	]`)

	displays, err := ParseMonitors(jsonData)
	require.NoError(t, err)
	require.Len(t, displays, 2)

	assert.Equal(t, "Dell Inc. U2720Q ABC123", displays[0].ID)

	// Anonymous hardware yields an empty ID; the coordinator drops it
	assert.Equal(t, "", displays[1].ID)
}

func TestParseMonitors_InvalidJSON(t *testing.T) {
	_, err := ParseMonitors([]byte(`{not an array`))
	assert.Error(t, err)

	var adapterErr *AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "hyprland", adapterErr.Source)
}

func TestParseCursorPos(t *testing.T) {
	pt, err := ParseCursorPos([]byte(`{"x": 812, "y": 14}`))
	require.NoError(t, err)
	assert.Equal(t, 812.0, pt.X)
	assert.Equal(t, 14.0, pt.Y)

	_, err = ParseCursorPos([]byte(`garbage`))
	assert.Error(t, err)
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected HyprEvent
		ok       bool
	}{
		{
			name:     "monitor added",
			line:     "monitoradded>>DP-3",
			expected: HyprEvent{Name: "monitoradded", Data: "DP-3"},
			ok:       true,
		},
		{
			name:     "monitor removed v2",
			line:     "monitorremovedv2>>1,DP-3,Dell Inc. DELL U2720Q 77FRP13",
			expected: HyprEvent{Name: "monitorremovedv2", Data: "1,DP-3,Dell Inc. DELL U2720Q 77FRP13"},
			ok:       true,
		},
		{
			name:     "trailing newline",
			line:     "focusedmon>>DP-3,1\n",
			expected: HyprEvent{Name: "focusedmon", Data: "DP-3,1"},
			ok:       true,
		},
		{
			name: "no separator",
			line: "not an event line",
			ok:   false,
		},
		{
			name: "empty name",
			line: ">>data",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := ParseEvent(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, ev)
			}
		})
	}
}

func TestIsMonitorEvent(t *testing.T) {
	assert.True(t, IsMonitorEvent("monitoradded"))
	assert.True(t, IsMonitorEvent("monitoraddedv2"))
	assert.True(t, IsMonitorEvent("monitorremoved"))
	assert.True(t, IsMonitorEvent("monitorremovedv2"))
	assert.False(t, IsMonitorEvent("focusedmon"))
	assert.False(t, IsMonitorEvent("workspace"))
}

func TestFallbackDisplay(t *testing.T) {
	d := FallbackDisplay(1920, 1080)
	assert.Equal(t, "fallback", d.ID)
	assert.True(t, d.Focused)
	assert.Equal(t, 1920.0, d.Bounds.W)
	assert.Equal(t, 1080.0, d.Bounds.H)
}

func TestHyprEvent_String(t *testing.T) {
	ev := HyprEvent{Name: "monitoradded", Data: "DP-3"}
	assert.Equal(t, "monitoradded>>DP-3", ev.String())
}
