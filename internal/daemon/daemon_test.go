package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledge-desktop/ledge/internal/config"
	"github.com/ledge-desktop/ledge/internal/display"
	"github.com/ledge-desktop/ledge/internal/journal"
	"github.com/ledge-desktop/ledge/internal/state"
)

// newTestDaemon constructs an unstarted daemon whose config keeps all
// writes inside the test's temp dir.
func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "ledged.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[debug]\njournal = false\n"), 0o644))

	d, err := New(Options{
		ConfigPath: cfgPath,
		Version:    "test",
		NoAdapters: true,
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		// Never started, so tear down only what construction created.
		d.scheduler.Stop()
		d.builder.Stop()
		d.coord.Stop()
		d.metrics.Close()
		d.hub.Close()
	})
	return d
}

func TestDaemonNew_Defaults(t *testing.T) {
	d := newTestDaemon(t)

	assert.Equal(t, config.DefaultDaemonConfig().Surface, d.currentConfig().Surface)
	assert.Equal(t, 0, d.coord.ContextCount())
	assert.Nil(t, d.jour)
}

func TestDaemonStatus_ReportsCoordinatorFacts(t *testing.T) {
	d := newTestDaemon(t)
	d.reconcileFallback()

	st := d.status()
	assert.Equal(t, "test", st.Version)
	assert.Equal(t, os.Getpid(), st.PID)
	assert.False(t, st.Locked)
	assert.False(t, st.Shelf)
	require.Len(t, st.Displays, 1)
	assert.Equal(t, "fallback", st.Displays[0].Display.ID)
}

func TestDaemonOpenDisplays_EmptySelectsAll(t *testing.T) {
	d := newTestDaemon(t)
	d.reconcileFallback()

	require.NoError(t, d.openDisplays("", state.ViewHome))
	assert.Equal(t, 1, d.coord.OpenCount())

	require.NoError(t, d.closeDisplays(""))
	assert.Equal(t, 0, d.coord.OpenCount())
}

func TestDaemonOpenDisplays_UnknownIDPropagates(t *testing.T) {
	d := newTestDaemon(t)
	d.reconcileFallback()

	assert.ErrorIs(t, d.openDisplays("nope", state.ViewHome), display.ErrUnknownDisplay)
	assert.ErrorIs(t, d.closeDisplays("nope"), display.ErrUnknownDisplay)
}

func TestDaemonStateChanges_TrackPerDisplayHistory(t *testing.T) {
	d := newTestDaemon(t)
	d.reconcileFallback()

	require.NoError(t, d.openDisplays("fallback", state.ViewShelf))

	d.mu.Lock()
	last := d.lastState["fallback"]
	d.mu.Unlock()
	assert.Equal(t, state.Open(state.ViewShelf).String(), last)
}

func TestDaemonJournal_RecordsTransitions(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ledged.toml")
	jpath := filepath.Join(dir, "journal.jsonl")
	body := fmt.Sprintf("[debug]\njournal = true\njournal_path = %q\n", jpath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	d, err := New(Options{ConfigPath: cfgPath, Version: "test", NoAdapters: true}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		d.scheduler.Stop()
		d.builder.Stop()
		d.coord.Stop()
		d.metrics.Close()
		d.hub.Close()
	})

	d.reconcileFallback()
	require.NoError(t, d.openDisplays("fallback", state.ViewHome))
	require.NoError(t, d.jour.Close())

	records, err := journal.ReadAll(jpath)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	last := records[len(records)-1]
	assert.Equal(t, "fallback", last.Display)
	assert.Equal(t, state.Open(state.ViewHome).String(), last.To)
	assert.Equal(t, "request-open", last.Cause)
	assert.NotEmpty(t, last.From)
}

func TestRestartOnly_FlagsFixedSections(t *testing.T) {
	old := config.DefaultDaemonConfig()
	next := config.DefaultDaemonConfig()
	assert.Empty(t, restartOnly(old, next))

	next.Surface.OpenWidth = 900
	next.Hover.ExitDelay = config.Duration(time.Second)
	next.Display.Mode = "preferred"
	assert.Equal(t, []string{"surface", "hover", "display"}, restartOnly(old, next))

	live := config.DefaultDaemonConfig()
	live.Features.InlineHUD = true
	live.Battery.LowPercent = 30
	live.Transients.PeekDuration = config.Duration(time.Second)
	assert.Empty(t, restartOnly(old, live))
}

type staticPointer struct{ pt display.Point }

func (s staticPointer) Pointer() (display.Point, bool) { return s.pt, true }

func TestPointerSwitch_NoDelegateReportsOutside(t *testing.T) {
	var ps pointerSwitch

	_, ok := ps.Pointer()
	assert.False(t, ok)

	ps.Set(staticPointer{pt: display.Point{X: 4, Y: 2}})
	pt, ok := ps.Pointer()
	require.True(t, ok)
	assert.Equal(t, display.Point{X: 4, Y: 2}, pt)

	ps.Set(nil)
	_, ok = ps.Pointer()
	assert.False(t, ok)
}

func TestCoordinatorConfig_MapsDaemonConfig(t *testing.T) {
	cfg := config.DefaultDaemonConfig()
	cfg.Display.Mode = "preferred"
	cfg.Display.Preferred = "dp-1"
	cfg.Display.OnLock = "destroy"
	cfg.Hover.EnterDelay = config.Duration(70 * time.Millisecond)

	cc := coordinatorConfig(cfg)
	assert.Equal(t, display.ModePreferred, cc.Mode)
	assert.Equal(t, "dp-1", cc.Preferred)
	assert.Equal(t, display.LockDestroy, cc.OnLock)
	assert.Equal(t, cfg.Surface.ClosedWidth, cc.ClosedWidth)
	assert.Equal(t, cfg.Surface.OpenHeight, cc.OpenHeight)
	assert.Equal(t, 70*time.Millisecond, cc.Hover.EnterDelay)
	assert.Equal(t, cfg.Hover.HeartbeatInterval.Duration(), cc.Heartbeat.Interval)
}
