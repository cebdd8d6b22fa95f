package display

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledge-desktop/ledge/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDisplay(id string, x float64) Display {
	return Display{
		ID:     id,
		Name:   id,
		Bounds: Rect{X: x, Y: 0, W: 1920, H: 1080},
		Scale:  1,
	}
}

// recorder collects callback deliveries for assertions.
type recorder struct {
	mu     sync.Mutex
	phases []string
	states []string
}

func (r *recorder) attach(c *Coordinator) {
	c.SetPhaseCallback(func(id string, p Phase) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.phases = append(r.phases, fmt.Sprintf("%s:%s", id, p))
	})
	c.SetStateCallback(func(id string, st state.DisplayState, cause string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.states = append(r.states, fmt.Sprintf("%s %s %s", id, cause, st))
	})
}

func (r *recorder) phaseLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.phases...)
}

func (r *recorder) stateLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = nil
	r.states = nil
}

// fakePointer is a settable PointerSource. The zero value reports no
// position.
type fakePointer struct {
	mu sync.Mutex
	pt Point
	ok bool
}

func (f *fakePointer) Pointer() (Point, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pt, f.ok
}

func (f *fakePointer) moveTo(x, y float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pt = Point{X: x, Y: y}
	f.ok = true
}

func newTestCoordinator(t *testing.T, cfg Config, ptr PointerSource) (*Coordinator, *recorder) {
	t.Helper()
	if cfg.Heartbeat.Interval == 0 {
		// Keep the background ticker out of virtual-time tests.
		cfg.Heartbeat.Interval = time.Hour
	}
	c := NewCoordinator(cfg, ptr, testLogger())
	rec := &recorder{}
	rec.attach(c)
	t.Cleanup(c.Stop)
	return c, rec
}

func TestCoordinator_ReconcileCreatesContexts(t *testing.T) {
	c, rec := newTestCoordinator(t, Config{}, nil)

	c.Reconcile([]Display{testDisplay("dp-1", 0), testDisplay("dp-2", 1920)})

	require.Equal(t, 2, c.ContextCount())
	assert.Equal(t, []string{
		"dp-1:created", "dp-2:created",
		"dp-1:positioned", "dp-2:positioned",
	}, rec.phaseLog())
	assert.Equal(t, []string{
		"dp-1 reconcile closed/idle",
		"dp-2 reconcile closed/idle",
	}, rec.stateLog())

	infos := c.Contexts()
	require.Len(t, infos, 2)
	assert.Equal(t, Rect{X: 800, Y: 0, W: 320, H: 36}, infos[0].Frame)
	assert.True(t, infos[0].Visible)
	assert.Equal(t, PhasePositioned, infos[0].Phase)
	assert.Equal(t, Rect{X: 2720, Y: 0, W: 320, H: 36}, infos[1].Frame)
}

func TestCoordinator_ReconcileIdempotent(t *testing.T) {
	c, rec := newTestCoordinator(t, Config{}, nil)
	displays := []Display{testDisplay("dp-1", 0), testDisplay("dp-2", 1920)}

	c.Reconcile(displays)
	rec.reset()

	c.Reconcile(displays)

	assert.Empty(t, rec.phaseLog())
	assert.Empty(t, rec.stateLog())
	assert.Equal(t, 2, c.ContextCount())
}

func TestCoordinator_ReconcileDetachAndReattach(t *testing.T) {
	c, rec := newTestCoordinator(t, Config{}, nil)
	c.Reconcile([]Display{testDisplay("dp-1", 0), testDisplay("dp-2", 1920)})
	rec.reset()

	c.Reconcile([]Display{testDisplay("dp-1", 0)})

	require.Equal(t, 1, c.ContextCount())
	assert.Equal(t, []string{"dp-2:destroyed"}, rec.phaseLog())
	assert.Empty(t, rec.stateLog())

	rec.reset()
	c.Reconcile([]Display{testDisplay("dp-1", 0), testDisplay("dp-2", 1920)})

	require.Equal(t, 2, c.ContextCount())
	assert.Equal(t, []string{"dp-2:created", "dp-2:positioned"}, rec.phaseLog())
	assert.Equal(t, []string{"dp-2 reconcile closed/idle"}, rec.stateLog())
}

func TestCoordinator_ReconcileRefreshesGeometry(t *testing.T) {
	c, rec := newTestCoordinator(t, Config{}, nil)
	c.Reconcile([]Display{testDisplay("dp-1", 0)})
	rec.reset()

	moved := testDisplay("dp-1", 0)
	moved.Bounds.X = 100
	c.Reconcile([]Display{moved})

	require.Equal(t, 1, c.ContextCount())
	assert.Empty(t, rec.phaseLog())
	assert.Empty(t, rec.stateLog())
	assert.Equal(t, Rect{X: 900, Y: 0, W: 320, H: 36}, c.Contexts()[0].Frame)
}

func TestCoordinator_ReconcileSkipsAnonymousDisplays(t *testing.T) {
	c, _ := newTestCoordinator(t, Config{}, nil)

	c.Reconcile([]Display{
		{Name: "DP-9", Bounds: Rect{W: 1920, H: 1080}},
		testDisplay("dp-1", 0),
	})

	assert.Equal(t, 1, c.ContextCount())
}

func TestCoordinator_PreferredMode(t *testing.T) {
	c, _ := newTestCoordinator(t, Config{Mode: ModePreferred, Preferred: "dp-2"}, nil)

	c.Reconcile([]Display{testDisplay("dp-1", 0), testDisplay("dp-2", 1920)})

	infos := c.Contexts()
	require.Len(t, infos, 2)
	assert.False(t, infos[0].Visible)
	assert.True(t, infos[1].Visible)

	_, ok := c.Frame("dp-1")
	assert.False(t, ok)
	_, ok = c.Frame("dp-2")
	assert.True(t, ok)
}

func TestCoordinator_PreferredMatchesName(t *testing.T) {
	c, _ := newTestCoordinator(t, Config{Mode: ModePreferred, Preferred: "DP-2"}, nil)
	d1 := Display{ID: "serial-1", Name: "DP-1", Bounds: Rect{W: 1920, H: 1080}, Scale: 1}
	d2 := Display{ID: "serial-2", Name: "DP-2", Bounds: Rect{X: 1920, W: 1920, H: 1080}, Scale: 1}

	c.Reconcile([]Display{d1, d2})

	infos := c.Contexts()
	assert.False(t, infos[0].Visible)
	assert.True(t, infos[1].Visible)
}

func TestCoordinator_PreferredFallsBackToFocused(t *testing.T) {
	c, _ := newTestCoordinator(t, Config{Mode: ModePreferred, Preferred: "gone"}, nil)
	focused := testDisplay("dp-2", 1920)
	focused.Focused = true

	c.Reconcile([]Display{testDisplay("dp-1", 0), focused})

	infos := c.Contexts()
	assert.False(t, infos[0].Visible)
	assert.True(t, infos[1].Visible)
}

func TestCoordinator_PreferredFallsBackToFirst(t *testing.T) {
	c, _ := newTestCoordinator(t, Config{Mode: ModePreferred}, nil)

	c.Reconcile([]Display{testDisplay("dp-2", 1920), testDisplay("dp-1", 0)})

	infos := c.Contexts()
	assert.True(t, infos[0].Visible)
	assert.False(t, infos[1].Visible)
}

func TestCoordinator_RequestOpenAndClose(t *testing.T) {
	c, rec := newTestCoordinator(t, Config{}, nil)
	c.Reconcile([]Display{testDisplay("dp-1", 0)})
	rec.reset()

	require.NoError(t, c.RequestOpen("dp-1", ""))
	assert.Equal(t, []string{"dp-1 request-open open/home"}, rec.stateLog())
	assert.Equal(t, 1, c.OpenCount())
	assert.Equal(t, Rect{X: 640, Y: 0, W: 640, H: 280}, c.Contexts()[0].Frame)

	// Reopening the same view is a no-op.
	rec.reset()
	require.NoError(t, c.RequestOpen("dp-1", ""))
	assert.Empty(t, rec.stateLog())

	require.NoError(t, c.RequestClose("dp-1"))
	assert.Equal(t, []string{"dp-1 request-close closed/idle"}, rec.stateLog())
	assert.Equal(t, 0, c.OpenCount())
	assert.Equal(t, Rect{X: 800, Y: 0, W: 320, H: 36}, c.Contexts()[0].Frame)

	rec.reset()
	require.NoError(t, c.RequestClose("dp-1"))
	assert.Empty(t, rec.stateLog())
}

func TestCoordinator_OpenUnknownDisplay(t *testing.T) {
	c, _ := newTestCoordinator(t, Config{}, nil)

	require.ErrorIs(t, c.RequestOpen("nope", ""), ErrUnknownDisplay)
	require.ErrorIs(t, c.RequestClose("nope"), ErrUnknownDisplay)
	require.ErrorIs(t, c.AdjustPosition("nope", false), ErrUnknownDisplay)
}

func TestCoordinator_OpenRejectsInvalidView(t *testing.T) {
	c, _ := newTestCoordinator(t, Config{}, nil)
	c.Reconcile([]Display{testDisplay("dp-1", 0)})

	require.Error(t, c.RequestOpen("dp-1", "settings"))
	assert.Equal(t, 0, c.OpenCount())
}

func TestCoordinator_OpenKeepsLastView(t *testing.T) {
	c, rec := newTestCoordinator(t, Config{}, nil)
	c.Reconcile([]Display{testDisplay("dp-1", 0)})

	require.NoError(t, c.RequestOpen("dp-1", state.ViewShelf))
	require.NoError(t, c.RequestClose("dp-1"))
	rec.reset()

	require.NoError(t, c.RequestOpen("dp-1", ""))
	assert.Equal(t, []string{"dp-1 request-open open/shelf"}, rec.stateLog())
}

func TestCoordinator_OpenSwitchesView(t *testing.T) {
	c, rec := newTestCoordinator(t, Config{}, nil)
	c.Reconcile([]Display{testDisplay("dp-1", 0)})
	require.NoError(t, c.RequestOpen("dp-1", ""))
	rec.reset()

	require.NoError(t, c.RequestOpen("dp-1", state.ViewShelf))

	assert.Equal(t, []string{"dp-1 request-open open/shelf"}, rec.stateLog())
	assert.Equal(t, 1, c.OpenCount())
}

func TestCoordinator_SetBaseInputRecomputes(t *testing.T) {
	c, rec := newTestCoordinator(t, Config{}, nil)
	c.Reconcile([]Display{testDisplay("dp-1", 0), testDisplay("dp-2", 1920)})
	rec.reset()

	in := state.Input{SneakPeek: state.Transient{Show: true, Event: state.EventVolume, Value: 0.4}}
	c.SetBaseInput(in, "signal:volume")
	assert.Equal(t, []string{
		"dp-1 signal:volume closed/sneak-peek(volume)",
		"dp-2 signal:volume closed/sneak-peek(volume)",
	}, rec.stateLog())

	// The same input again produces no further notifications.
	rec.reset()
	c.SetBaseInput(in, "signal:volume")
	assert.Empty(t, rec.stateLog())
}

func TestCoordinator_OpenDisplayIgnoresTransients(t *testing.T) {
	c, rec := newTestCoordinator(t, Config{}, nil)
	c.Reconcile([]Display{testDisplay("dp-1", 0), testDisplay("dp-2", 1920)})
	require.NoError(t, c.RequestOpen("dp-1", ""))
	rec.reset()

	in := state.Input{SneakPeek: state.Transient{Show: true, Event: state.EventVolume, Value: 0.4}}
	c.SetBaseInput(in, "signal:volume")

	// Only the closed display reacts; the open one keeps its view.
	assert.Equal(t, []string{"dp-2 signal:volume closed/sneak-peek(volume)"}, rec.stateLog())
}

func TestCoordinator_LockHideClosesAndRestores(t *testing.T) {
	c, rec := newTestCoordinator(t, Config{}, nil)
	c.Reconcile([]Display{testDisplay("dp-1", 0)})
	require.NoError(t, c.RequestOpen("dp-1", ""))
	rec.reset()

	c.SetLocked(true)

	assert.True(t, c.Locked())
	assert.Equal(t, 0, c.OpenCount())
	assert.Equal(t, []string{"dp-1:locked"}, rec.phaseLog())
	assert.Equal(t, []string{"dp-1 lock closed/idle"}, rec.stateLog())

	_, ok := c.Frame("dp-1")
	assert.False(t, ok)
	require.ErrorIs(t, c.RequestOpen("dp-1", ""), ErrSessionLocked)

	// Locking again is a no-op.
	rec.reset()
	c.SetLocked(true)
	assert.Empty(t, rec.phaseLog())

	c.SetLocked(false)

	assert.False(t, c.Locked())
	assert.Equal(t, []string{"dp-1:positioned"}, rec.phaseLog())
	assert.Empty(t, rec.stateLog())
	_, ok = c.Frame("dp-1")
	assert.True(t, ok)
}

func TestCoordinator_LockDestroy(t *testing.T) {
	c, rec := newTestCoordinator(t, Config{OnLock: LockDestroy}, nil)
	displays := []Display{testDisplay("dp-1", 0), testDisplay("dp-2", 1920)}
	c.Reconcile(displays)
	rec.reset()

	c.SetLocked(true)
	assert.Equal(t, 0, c.ContextCount())
	assert.Equal(t, []string{"dp-1:destroyed", "dp-2:destroyed"}, rec.phaseLog())

	// While locked, reconciling does not resurrect surfaces.
	c.Reconcile(displays)
	assert.Equal(t, 0, c.ContextCount())

	c.SetLocked(false)
	c.Reconcile(displays)
	assert.Equal(t, 2, c.ContextCount())
}

func TestCoordinator_Inhibitors(t *testing.T) {
	c, _ := newTestCoordinator(t, Config{}, nil)

	assert.False(t, c.Inhibited())

	c.AddInhibitor("cli")
	c.AddInhibitor("drag")
	assert.True(t, c.Inhibited())
	assert.Equal(t, []string{"cli", "drag"}, c.Inhibitors())

	c.RemoveInhibitor("cli")
	assert.True(t, c.Inhibited())
	c.RemoveInhibitor("drag")
	assert.False(t, c.Inhibited())

	c.AddInhibitor("a")
	c.ClearInhibitors()
	assert.False(t, c.Inhibited())
	assert.Empty(t, c.Inhibitors())
}

func TestCoordinator_HoverOpensAndCloses(t *testing.T) {
	ptr := &fakePointer{}
	c, rec := newTestCoordinator(t, Config{}, ptr)

	var mu sync.Mutex
	var intents []string
	c.SetOpenIntentCallback(func(id string) {
		mu.Lock()
		defer mu.Unlock()
		intents = append(intents, "open:"+id)
	})
	c.SetCloseIntentCallback(func(id string) {
		mu.Lock()
		defer mu.Unlock()
		intents = append(intents, "close:"+id)
	})

	c.Reconcile([]Display{testDisplay("dp-1", 0)})
	rec.reset()

	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	at := func(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

	// Pointer settles over the closed strip.
	ptr.moveTo(900, 10)
	c.sample("dp-1", at(0))
	assert.Empty(t, rec.stateLog())

	c.sample("dp-1", at(60))
	assert.Equal(t, []string{"dp-1 hover-open open/home"}, rec.stateLog())
	assert.Equal(t, 1, c.OpenCount())

	// Pointer leaves the expanded surface; the exit delay holds it open.
	ptr.moveTo(10, 800)
	c.sample("dp-1", at(100))
	assert.Equal(t, 1, c.OpenCount())
	c.sample("dp-1", at(550))
	assert.Equal(t, 1, c.OpenCount())

	c.sample("dp-1", at(700))
	assert.Equal(t, 0, c.OpenCount())
	assert.Equal(t, []string{
		"dp-1 hover-open open/home",
		"dp-1 hover-close closed/idle",
	}, rec.stateLog())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"open:dp-1", "close:dp-1"}, intents)
}

func TestCoordinator_HoverReentryCancelsClose(t *testing.T) {
	ptr := &fakePointer{}
	c, rec := newTestCoordinator(t, Config{}, ptr)
	c.Reconcile([]Display{testDisplay("dp-1", 0)})

	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	at := func(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

	ptr.moveTo(900, 10)
	c.sample("dp-1", at(0))
	c.sample("dp-1", at(60))
	require.Equal(t, 1, c.OpenCount())
	rec.reset()

	ptr.moveTo(10, 800)
	c.sample("dp-1", at(100))
	ptr.moveTo(900, 10)
	c.sample("dp-1", at(400))

	// Well past the exit delay, still open.
	c.sample("dp-1", at(2000))
	assert.Equal(t, 1, c.OpenCount())
	assert.Empty(t, rec.stateLog())
}

func TestCoordinator_InhibitorHoldsHoverClose(t *testing.T) {
	ptr := &fakePointer{}
	c, rec := newTestCoordinator(t, Config{}, ptr)
	c.Reconcile([]Display{testDisplay("dp-1", 0)})

	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	at := func(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

	ptr.moveTo(900, 10)
	c.sample("dp-1", at(0))
	c.sample("dp-1", at(60))
	require.Equal(t, 1, c.OpenCount())
	rec.reset()

	c.AddInhibitor("cli")
	ptr.moveTo(10, 800)
	c.sample("dp-1", at(100))
	c.sample("dp-1", at(700))
	assert.Equal(t, 1, c.OpenCount())

	c.RemoveInhibitor("cli")
	c.sample("dp-1", at(716))
	assert.Equal(t, 0, c.OpenCount())
	assert.Equal(t, []string{"dp-1 hover-close closed/idle"}, rec.stateLog())
}

func TestCoordinator_MissingPointerReadsOutside(t *testing.T) {
	ptr := &fakePointer{} // never reports a position
	c, _ := newTestCoordinator(t, Config{}, ptr)
	c.Reconcile([]Display{testDisplay("dp-1", 0)})

	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.sample("dp-1", t0)
	c.sample("dp-1", t0.Add(time.Second))

	assert.Equal(t, 0, c.OpenCount())
}

func TestCoordinator_TickObserverTimesSamples(t *testing.T) {
	c, _ := newTestCoordinator(t, Config{}, &fakePointer{})
	c.Reconcile([]Display{testDisplay("dp-1", 0)})

	// Unset observer must not break sampling.
	c.sample("dp-1", time.Now())

	var mu sync.Mutex
	var elapsed []time.Duration
	c.SetTickObserver(func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		elapsed = append(elapsed, d)
	})

	c.sample("dp-1", time.Now())
	c.sample("dp-1", time.Now())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, elapsed, 2)
	for _, d := range elapsed {
		assert.GreaterOrEqual(t, d, time.Duration(0))
	}
}

func TestCoordinator_ContextsReportChinAndChrome(t *testing.T) {
	c, _ := newTestCoordinator(t, Config{}, nil)
	c.Reconcile([]Display{testDisplay("dp-1", 0)})

	in := state.Input{SneakPeek: state.Transient{Show: true, Event: state.EventVolume, Value: 0.4}}
	c.SetBaseInput(in, "signal:volume")

	infos := c.Contexts()
	require.Len(t, infos, 1)
	assert.Equal(t, state.ContentSneakPeek, infos[0].State.Content)
	assert.Equal(t, 320, infos[0].ChinWidth)
	assert.True(t, infos[0].OverlayChrome)

	c.SetBaseInput(state.Input{
		ExpandingView: state.Transient{Show: true, Event: state.EventBattery},
		PowerNotices:  true,
	}, "signal:battery")

	infos = c.Contexts()
	assert.Equal(t, state.ContentBattery, infos[0].State.Content)
	assert.Equal(t, 640, infos[0].ChinWidth)
	assert.False(t, infos[0].OverlayChrome)
}

func TestCoordinator_Stop(t *testing.T) {
	c, rec := newTestCoordinator(t, Config{}, nil)
	c.Reconcile([]Display{testDisplay("dp-1", 0), testDisplay("dp-2", 1920)})
	rec.reset()

	c.Stop()

	assert.Equal(t, 0, c.ContextCount())
	assert.Equal(t, []string{"dp-1:destroyed", "dp-2:destroyed"}, rec.phaseLog())
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, ModeAll, cfg.Mode)
	assert.Equal(t, LockHide, cfg.OnLock)
	assert.Equal(t, 320, cfg.ClosedWidth)
	assert.Equal(t, 36, cfg.ClosedHeight)
	assert.Equal(t, 640, cfg.OpenWidth)
	assert.Equal(t, 280, cfg.OpenHeight)
}
