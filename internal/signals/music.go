package signals

import (
	"sync"
	"time"
)

// PlaybackStatus is a media player's reported playback state.
type PlaybackStatus string

const (
	// PlaybackPlaying means a player is actively playing.
	PlaybackPlaying PlaybackStatus = "playing"
	// PlaybackPaused means playback is paused.
	PlaybackPaused PlaybackStatus = "paused"
	// PlaybackStopped means playback is stopped.
	PlaybackStopped PlaybackStatus = "stopped"
)

// Music describes the active media player.
type Music struct {
	// Present reports whether any player is on the bus.
	Present bool           `json:"present"`
	Status  PlaybackStatus `json:"status,omitempty"`
	Player  string         `json:"player,omitempty"`
	Title   string         `json:"title,omitempty"`
	Artist  string         `json:"artist,omitempty"`
	Album   string         `json:"album,omitempty"`
	ArtURL  string         `json:"art_url,omitempty"`
}

// Playing reports whether music is actively playing.
func (m Music) Playing() bool {
	return m.Present && m.Status == PlaybackPlaying
}

// MusicUpdate is one published music change.
type MusicUpdate struct {
	ID    string    `json:"id"`
	Seq   uint64    `json:"seq"`
	Time  time.Time `json:"time"`
	Music Music     `json:"music"`
}

// MusicTopic fans music updates out to subscribers and keeps the latest
// value for snapshot reads.
type MusicTopic struct {
	mu          sync.RWMutex
	latest      MusicUpdate
	has         bool
	seq         uint64
	subscribers []chan MusicUpdate
	closed      bool
}

// NewMusicTopic creates an empty topic.
func NewMusicTopic() *MusicTopic {
	return &MusicTopic{subscribers: make([]chan MusicUpdate, 0)}
}

// Publish stamps v with an event ID and sequence number and fans it out.
// Slow subscribers miss updates rather than block the publisher.
func (t *MusicTopic) Publish(v Music) (MusicUpdate, error) {
	id, err := newEventID()
	if err != nil {
		return MusicUpdate{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return MusicUpdate{}, ErrTopicClosed
	}

	t.seq++
	u := MusicUpdate{ID: id, Seq: t.seq, Time: time.Now(), Music: v}
	t.latest = u
	t.has = true

	for _, ch := range t.subscribers {
		select {
		case ch <- u:
		default:
			// Channel full, skip
		}
	}
	return u, nil
}

// Latest returns the most recent update, if any was published.
func (t *MusicTopic) Latest() (MusicUpdate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest, t.has
}

// Seq returns the current sequence number. Scheduled actions capture it
// and bail out when a newer publication has superseded them.
func (t *MusicTopic) Seq() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seq
}

// Subscribe returns a channel that receives future updates.
func (t *MusicTopic) Subscribe() <-chan MusicUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan MusicUpdate, subscriberBuffer)
	t.subscribers = append(t.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (t *MusicTopic) Unsubscribe(ch <-chan MusicUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, sub := range t.subscribers {
		if sub == ch {
			t.subscribers = append(t.subscribers[:i], t.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close closes all subscriber channels and rejects further publishes.
func (t *MusicTopic) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	for _, ch := range t.subscribers {
		close(ch)
	}
	t.subscribers = nil
}
