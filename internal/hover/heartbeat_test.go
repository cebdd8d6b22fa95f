package hover

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHeartbeat(t *testing.T) (*Heartbeat, *atomic.Int64) {
	t.Helper()
	var ticks atomic.Int64
	hb := NewHeartbeat(HeartbeatConfig{
		Interval: 5 * time.Millisecond,
		Burst:    30 * time.Millisecond,
	}, func(time.Time) { ticks.Add(1) }, testLogger())
	t.Cleanup(hb.Stop)
	return hb, &ticks
}

func TestHeartbeat_ParkedCostsNothing(t *testing.T) {
	hb, ticks := newTestHeartbeat(t)
	hb.Start()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(0), ticks.Load())
	assert.False(t, hb.Armed())
}

func TestHeartbeat_ArmTicksContinuously(t *testing.T) {
	hb, ticks := newTestHeartbeat(t)
	hb.Start()
	hb.Arm()

	require.Eventually(t, func() bool { return ticks.Load() >= 5 },
		time.Second, 5*time.Millisecond)
	assert.True(t, hb.Armed())
}

func TestHeartbeat_ParkStopsTicking(t *testing.T) {
	hb, ticks := newTestHeartbeat(t)
	hb.Start()
	hb.Arm()
	require.Eventually(t, func() bool { return ticks.Load() >= 3 },
		time.Second, 5*time.Millisecond)

	hb.Park()
	// Let the in-flight tick land, then confirm there is no growth.
	time.Sleep(50 * time.Millisecond)
	settled := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, ticks.Load())
}

func TestHeartbeat_KickBurstsWhileParked(t *testing.T) {
	hb, ticks := newTestHeartbeat(t)
	hb.Start()

	hb.Kick()
	require.Eventually(t, func() bool { return ticks.Load() >= 2 },
		time.Second, 2*time.Millisecond, "kick must drive a burst of ticks")

	// The burst expires and the heartbeat parks again.
	time.Sleep(80 * time.Millisecond)
	settled := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, ticks.Load())
}

func TestHeartbeat_StopIsSynchronous(t *testing.T) {
	hb, ticks := newTestHeartbeat(t)
	hb.Start()
	hb.Arm()
	require.Eventually(t, func() bool { return ticks.Load() >= 2 },
		time.Second, 5*time.Millisecond)

	hb.Stop()
	after := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, ticks.Load(), "no tick may run after Stop returns")

	// Stopping again is a no-op.
	hb.Stop()
}

func TestHeartbeat_StopWhileParked(t *testing.T) {
	hb, _ := newTestHeartbeat(t)
	hb.Start()

	done := make(chan struct{})
	go func() {
		hb.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return for a parked heartbeat")
	}
}

func TestHeartbeat_Restart(t *testing.T) {
	hb, ticks := newTestHeartbeat(t)
	hb.Start()
	hb.Arm()
	require.Eventually(t, func() bool { return ticks.Load() >= 1 },
		time.Second, 5*time.Millisecond)

	hb.Stop()
	stopped := ticks.Load()

	hb.Start()
	require.Eventually(t, func() bool { return ticks.Load() > stopped },
		time.Second, 5*time.Millisecond, "armed state survives a restart")
}
