package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledge-desktop/ledge/internal/state"
)

func TestNewHub(t *testing.T) {
	h := NewHub()
	defer h.Close()

	require.NotNil(t, h.Music)
	require.NotNil(t, h.Battery)
	require.NotNil(t, h.SneakPeek)
	require.NotNil(t, h.ExpandingView)
	// Sneak peek and expanding view are distinct topics.
	assert.NotSame(t, h.SneakPeek, h.ExpandingView)
}

func TestMusicTopic_PublishAndLatest(t *testing.T) {
	topic := NewMusicTopic()
	defer topic.Close()

	_, ok := topic.Latest()
	assert.False(t, ok)

	u, err := topic.Publish(Music{Present: true, Status: PlaybackPlaying, Title: "Song"})
	require.NoError(t, err)
	assert.Len(t, u.ID, 26)
	assert.Equal(t, uint64(1), u.Seq)
	assert.True(t, u.Music.Playing())

	got, ok := topic.Latest()
	require.True(t, ok)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Song", got.Music.Title)
}

func TestMusicTopic_Subscribe(t *testing.T) {
	topic := NewMusicTopic()
	defer topic.Close()

	ch := topic.Subscribe()
	require.NotNil(t, ch)

	go func() {
		topic.Publish(Music{Present: true, Status: PlaybackPaused})
	}()

	select {
	case u := <-ch:
		assert.Equal(t, PlaybackPaused, u.Music.Status)
		assert.False(t, u.Music.Playing())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for update")
	}
}

func TestMusicTopic_SlowSubscriberDoesNotBlock(t *testing.T) {
	topic := NewMusicTopic()
	defer topic.Close()

	ch := topic.Subscribe()

	// Publish past the buffer without anyone draining; must not block.
	for i := 0; i < subscriberBuffer+5; i++ {
		_, err := topic.Publish(Music{Present: true})
		require.NoError(t, err)
	}

	assert.Len(t, ch, subscriberBuffer)
	latest, ok := topic.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(subscriberBuffer+5), latest.Seq)
}

func TestMusicTopic_Unsubscribe(t *testing.T) {
	topic := NewMusicTopic()

	ch := topic.Subscribe()
	topic.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	topic.Close()
}

func TestMusicTopic_Close(t *testing.T) {
	topic := NewMusicTopic()
	ch := topic.Subscribe()

	topic.Close()

	_, open := <-ch
	assert.False(t, open)

	_, err := topic.Publish(Music{})
	assert.ErrorIs(t, err, ErrTopicClosed)

	// Closing again is a no-op.
	topic.Close()
}

func TestBatteryTopic_PublishAndLatest(t *testing.T) {
	topic := NewBatteryTopic()
	defer topic.Close()

	u, err := topic.Publish(Battery{
		Present:    true,
		Percentage: 17.5,
		State:      BatteryDischarging,
		OnBattery:  true,
	})
	require.NoError(t, err)
	assert.Len(t, u.ID, 26)

	got, ok := topic.Latest()
	require.True(t, ok)
	assert.Equal(t, 17.5, got.Battery.Percentage)
	assert.Equal(t, BatteryDischarging, got.Battery.State)
}

func TestTransientTopic_SequenceGuard(t *testing.T) {
	topic := NewTransientTopic()
	defer topic.Close()

	shown, err := topic.Publish(state.Transient{Show: true, Event: state.EventVolume, Value: 0.3})
	require.NoError(t, err)
	assert.Equal(t, shown.Seq, topic.Seq())

	// A newer publication supersedes any clear scheduled against shown.Seq.
	_, err = topic.Publish(state.Transient{Show: true, Event: state.EventVolume, Value: 0.6})
	require.NoError(t, err)
	assert.NotEqual(t, shown.Seq, topic.Seq())
}

func TestTransientTopic_DistinctIDs(t *testing.T) {
	topic := NewTransientTopic()
	defer topic.Close()

	a, err := topic.Publish(state.Transient{Show: true, Event: state.EventBrightness})
	require.NoError(t, err)
	b, err := topic.Publish(state.Transient{Show: false})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Greater(t, b.Seq, a.Seq)
}
