package hover

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// at offsets Tick calls from a fixed origin.
func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func newCounting(t *testing.T) (*Controller, *int, *int) {
	t.Helper()
	c := New(Config{
		EnterDelay:     50 * time.Millisecond,
		ExitDelay:      500 * time.Millisecond,
		ShelfExitDelay: 4 * time.Second,
	})
	opens := new(int)
	closes := new(int)
	c.SetOpenCallback(func() { *opens++ })
	c.SetCloseCallback(func() { *closes++ })
	return c, opens, closes
}

// driveInside walks the controller to a confirmed Inside phase.
func driveInside(t *testing.T, c *Controller) {
	t.Helper()
	c.Tick(at(0), true)
	c.Tick(at(64), true)
	require.Equal(t, PhaseInside, c.Phase())
}

func TestController_SustainedEntryOpensOnce(t *testing.T) {
	c, opens, closes := newCounting(t)

	// 16ms cadence from entry at t=0; the first tick at or past 50ms opens.
	c.Tick(at(0), true)
	assert.Equal(t, PhaseEntering, c.Phase())
	c.Tick(at(16), true)
	c.Tick(at(32), true)
	c.Tick(at(48), true)
	assert.Equal(t, 0, *opens)
	assert.Equal(t, PhaseEntering, c.Phase())

	c.Tick(at(64), true)
	assert.Equal(t, 1, *opens)
	assert.Equal(t, PhaseInside, c.Phase())

	// Staying inside never re-fires.
	c.Tick(at(80), true)
	c.Tick(at(96), true)
	assert.Equal(t, 1, *opens)
	assert.Equal(t, 0, *closes)
}

func TestController_EarlyExitAbortsEntry(t *testing.T) {
	c, opens, _ := newCounting(t)

	c.Tick(at(0), true)
	c.Tick(at(16), true)
	c.Tick(at(32), false)

	assert.Equal(t, 0, *opens)
	assert.Equal(t, PhaseOutside, c.Phase())
}

func TestController_ReentryRestartsDebounce(t *testing.T) {
	c, opens, _ := newCounting(t)

	c.Tick(at(0), true)
	c.Tick(at(32), false)
	require.Equal(t, PhaseOutside, c.Phase())

	// A fresh entry measures from its own timestamp, not the first one.
	c.Tick(at(40), true)
	c.Tick(at(80), true)
	assert.Equal(t, 0, *opens)
	c.Tick(at(96), true)
	assert.Equal(t, 1, *opens)
}

func TestController_ReentryCancelsPendingClose(t *testing.T) {
	c, opens, closes := newCounting(t)
	driveInside(t, c)

	c.Tick(at(100), false)
	assert.Equal(t, PhaseExiting, c.Phase())

	// Re-entry at 350ms into a 500ms exit delay: no close, no extra open.
	c.Tick(at(450), true)
	assert.Equal(t, PhaseInside, c.Phase())
	assert.Equal(t, 0, *closes)
	assert.Equal(t, 1, *opens)
}

func TestController_SustainedExitClosesOnce(t *testing.T) {
	c, _, closes := newCounting(t)
	driveInside(t, c)

	c.Tick(at(100), false)
	c.Tick(at(300), false)
	c.Tick(at(599), false)
	assert.Equal(t, 0, *closes)
	assert.Equal(t, PhaseExiting, c.Phase())

	c.Tick(at(600), false)
	assert.Equal(t, 1, *closes)
	assert.Equal(t, PhaseOutside, c.Phase())

	// Still outside: nothing further fires.
	c.Tick(at(700), false)
	assert.Equal(t, 1, *closes)
}

func TestController_ShelfModeLengthensExit(t *testing.T) {
	c, _, closes := newCounting(t)
	c.SetShelfActive(true)
	driveInside(t, c)

	c.Tick(at(100), false)
	c.Tick(at(700), false)
	c.Tick(at(2100), false)
	assert.Equal(t, 0, *closes, "still within the shelf exit delay")

	c.Tick(at(4200), false)
	assert.Equal(t, 1, *closes)
	assert.Equal(t, PhaseOutside, c.Phase())
}

func TestController_ShelfToggleAppliesMidExit(t *testing.T) {
	c, _, closes := newCounting(t)
	driveInside(t, c)

	c.Tick(at(100), false)
	c.SetShelfActive(true)

	// Past the normal delay but within the shelf delay: no close yet.
	c.Tick(at(700), false)
	assert.Equal(t, 0, *closes)
	assert.Equal(t, PhaseExiting, c.Phase())

	c.SetShelfActive(false)
	c.Tick(at(716), false)
	assert.Equal(t, 1, *closes)
}

func TestController_PreventCloseHoldsExiting(t *testing.T) {
	c, _, closes := newCounting(t)
	prevent := true
	c.SetPreventCloseCheck(func() bool { return prevent })
	driveInside(t, c)

	c.Tick(at(100), false)
	c.Tick(at(700), false)
	assert.Equal(t, 0, *closes)
	assert.Equal(t, PhaseExiting, c.Phase(), "suppressed close stays in Exiting")

	// The guard clears: the close fires on the next tick, not sooner.
	prevent = false
	c.Tick(at(716), false)
	assert.Equal(t, 1, *closes)
	assert.Equal(t, PhaseOutside, c.Phase())
}

func TestController_PointerReturnWhileGuardHeld(t *testing.T) {
	c, opens, closes := newCounting(t)
	c.SetPreventCloseCheck(func() bool { return true })
	driveInside(t, c)

	c.Tick(at(100), false)
	c.Tick(at(700), false)
	require.Equal(t, PhaseExiting, c.Phase())

	// The pointer comes back while the guard still holds: plain re-entry.
	c.Tick(at(716), true)
	assert.Equal(t, PhaseInside, c.Phase())
	assert.Equal(t, 0, *closes)
	assert.Equal(t, 1, *opens)
}

func TestController_ResetDropsPendingTransitions(t *testing.T) {
	c, opens, closes := newCounting(t)
	driveInside(t, c)

	c.Tick(at(100), false)
	require.Equal(t, PhaseExiting, c.Phase())

	c.Reset()
	assert.Equal(t, PhaseOutside, c.Phase())

	// The delayed exit never fires after a reset.
	c.Tick(at(700), false)
	assert.Equal(t, 0, *closes)
	assert.Equal(t, 1, *opens)
}

func TestController_MissingRegionFailsClosed(t *testing.T) {
	// Callers with no frame sample "outside"; the machine never opens.
	c, opens, _ := newCounting(t)

	for ms := 0; ms <= 200; ms += 16 {
		c.Tick(at(ms), false)
	}
	assert.Equal(t, 0, *opens)
	assert.Equal(t, PhaseOutside, c.Phase())
}

func TestController_DefaultsApplied(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultEnterDelay, c.cfg.EnterDelay)
	assert.Equal(t, DefaultExitDelay, c.cfg.ExitDelay)
	assert.Equal(t, DefaultShelfExitDelay, c.cfg.ShelfExitDelay)
	assert.Equal(t, PhaseOutside, c.Phase())
}
