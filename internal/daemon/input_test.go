package daemon

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledge-desktop/ledge/internal/config"
	"github.com/ledge-desktop/ledge/internal/registry"
	"github.com/ledge-desktop/ledge/internal/signals"
	"github.com/ledge-desktop/ledge/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// inputRecorder collects every input handed to the callback.
type inputRecorder struct {
	mu     sync.Mutex
	inputs []state.Input
	causes []string
}

func (r *inputRecorder) record(in state.Input, cause string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, in)
	r.causes = append(r.causes, cause)
}

func (r *inputRecorder) last() (state.Input, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.inputs) == 0 {
		return state.Input{}, "", false
	}
	return r.inputs[len(r.inputs)-1], r.causes[len(r.causes)-1], true
}

func (r *inputRecorder) lastCause() string {
	_, cause, _ := r.last()
	return cause
}

func (r *inputRecorder) allCauses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.causes))
	copy(out, r.causes)
	return out
}

func (r *inputRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inputs)
}

func newTestBuilder(t *testing.T, mutate func(cfg *config.DaemonConfig)) (*InputBuilder, *signals.Hub, *registry.Registry, *inputRecorder) {
	t.Helper()
	cfg := config.DefaultDaemonConfig()
	if mutate != nil {
		mutate(cfg)
	}
	hub := signals.NewHub()
	reg := registry.New()
	b := NewInputBuilder(hub, reg, cfg, testLogger())
	rec := &inputRecorder{}
	b.SetInputCallback(rec.record)
	t.Cleanup(func() {
		b.Stop()
		hub.Close()
	})
	return b, hub, reg, rec
}

func TestInputBuilder_BuildDefaults(t *testing.T) {
	b, _, _, _ := newTestBuilder(t, nil)

	in := b.Build()
	assert.False(t, in.HelloAnimationRunning)
	assert.False(t, in.MusicLive)
	assert.False(t, in.PlayerIdle)
	assert.True(t, in.MusicLiveActivity)
	assert.True(t, in.PowerNotices)
	assert.False(t, in.InlineHUDStyle)
	assert.False(t, in.SneakPeek.Show)
	assert.Nil(t, in.Winners.Center)
}

func TestInputBuilder_RecomputeCarriesCause(t *testing.T) {
	b, _, _, rec := newTestBuilder(t, nil)

	b.Recompute("registry")

	_, cause, ok := rec.last()
	require.True(t, ok)
	assert.Equal(t, "registry", cause)
}

func TestInputBuilder_HelloRunsAndReleases(t *testing.T) {
	b, _, _, rec := newTestBuilder(t, nil)

	b.StartHello(40 * time.Millisecond)

	in, cause, ok := rec.last()
	require.True(t, ok)
	assert.Equal(t, "hello", cause)
	assert.True(t, in.HelloAnimationRunning)

	require.Eventually(t, func() bool {
		return rec.lastCause() == "hello-done"
	}, time.Second, 5*time.Millisecond)
	in, _, _ = rec.last()
	assert.False(t, in.HelloAnimationRunning)
}

func TestInputBuilder_HelloZeroDurationDisabled(t *testing.T) {
	b, _, _, rec := newTestBuilder(t, nil)

	b.StartHello(0)

	assert.Equal(t, 0, rec.count())
	assert.False(t, b.Build().HelloAnimationRunning)
}

func TestInputBuilder_MusicIdleGrace(t *testing.T) {
	b, _, _, rec := newTestBuilder(t, func(cfg *config.DaemonConfig) {
		cfg.Music.IdleTimeout = config.Duration(30 * time.Millisecond)
	})

	b.ObserveMusic(signals.Music{Present: true, Status: signals.PlaybackPlaying})
	in, _, _ := rec.last()
	assert.True(t, in.MusicLive)
	assert.True(t, in.Playing)
	assert.False(t, in.PlayerIdle)

	// Pausing starts the grace period, it does not idle immediately.
	b.ObserveMusic(signals.Music{Present: true, Status: signals.PlaybackPaused})
	in, _, _ = rec.last()
	assert.True(t, in.MusicLive)
	assert.False(t, in.Playing)
	assert.False(t, in.PlayerIdle)

	require.Eventually(t, func() bool {
		in, _, ok := rec.last()
		return ok && in.PlayerIdle
	}, time.Second, 5*time.Millisecond)
	in, cause, _ := rec.last()
	assert.Equal(t, "music-idle", cause)
	assert.False(t, in.MusicLive)
}

func TestInputBuilder_ResumeCancelsIdleCountdown(t *testing.T) {
	b, _, _, rec := newTestBuilder(t, func(cfg *config.DaemonConfig) {
		cfg.Music.IdleTimeout = config.Duration(40 * time.Millisecond)
	})

	b.ObserveMusic(signals.Music{Present: true, Status: signals.PlaybackPlaying})
	b.ObserveMusic(signals.Music{Present: true, Status: signals.PlaybackPaused})
	b.ObserveMusic(signals.Music{Present: true, Status: signals.PlaybackPlaying})

	time.Sleep(80 * time.Millisecond)
	assert.NotContains(t, rec.allCauses(), "music-idle")
	in, _, _ := rec.last()
	assert.True(t, in.MusicLive)
	assert.False(t, in.PlayerIdle)
}

func TestInputBuilder_TransientsFlowIntoInput(t *testing.T) {
	b, hub, _, _ := newTestBuilder(t, nil)

	_, err := hub.SneakPeek.Publish(state.Transient{Show: true, Event: state.EventVolume, Value: 0.5})
	require.NoError(t, err)
	_, err = hub.ExpandingView.Publish(state.Transient{Show: true, Event: state.EventTimer})
	require.NoError(t, err)

	in := b.Build()
	assert.True(t, in.SneakPeek.Show)
	assert.Equal(t, state.EventVolume, in.SneakPeek.Event)
	assert.True(t, in.ExpandingView.Show)
	assert.Equal(t, state.EventTimer, in.ExpandingView.Event)
}

func TestInputBuilder_WinnersFlowIntoInput(t *testing.T) {
	b, _, reg, _ := newTestBuilder(t, nil)

	require.NoError(t, reg.Register("pomodoro"))
	require.NoError(t, reg.Submit("pomodoro", registry.AnchorCenter, registry.Request{Priority: registry.PriorityHigh}))

	in := b.Build()
	require.NotNil(t, in.Winners.Center)
	assert.Equal(t, "pomodoro", in.Winners.Center.Producer)
}

func TestInputBuilder_ApplyConfigSwapsFeatures(t *testing.T) {
	b, _, _, rec := newTestBuilder(t, nil)

	next := config.DefaultDaemonConfig()
	next.Features.MusicLive = false
	next.Features.InlineHUD = true
	b.ApplyConfig(next)

	in, cause, ok := rec.last()
	require.True(t, ok)
	assert.Equal(t, "config-reload", cause)
	assert.False(t, in.MusicLiveActivity)
	assert.True(t, in.InlineHUDStyle)
}

func TestInputBuilder_StopCancelsTimers(t *testing.T) {
	b, _, _, rec := newTestBuilder(t, nil)

	b.StartHello(30 * time.Millisecond)
	b.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.NotContains(t, rec.allCauses(), "hello-done")
}
