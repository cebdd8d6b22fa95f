package signals

import (
	"sync"
	"time"

	"github.com/ledge-desktop/ledge/internal/state"
)

// TransientUpdate is one published transient descriptor change.
type TransientUpdate struct {
	ID        string          `json:"id"`
	Seq       uint64          `json:"seq"`
	Time      time.Time       `json:"time"`
	Transient state.Transient `json:"transient"`
}

// TransientTopic fans transient descriptor updates out to subscribers.
// Sneak peeks and expanding views share the implementation, one instance
// each. The sequence number is how scheduled auto-clears detect that a
// newer publication superseded them.
type TransientTopic struct {
	mu          sync.RWMutex
	latest      TransientUpdate
	has         bool
	seq         uint64
	subscribers []chan TransientUpdate
	closed      bool
}

// NewTransientTopic creates an empty topic.
func NewTransientTopic() *TransientTopic {
	return &TransientTopic{subscribers: make([]chan TransientUpdate, 0)}
}

// Publish stamps v with an event ID and sequence number and fans it out.
func (t *TransientTopic) Publish(v state.Transient) (TransientUpdate, error) {
	id, err := newEventID()
	if err != nil {
		return TransientUpdate{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return TransientUpdate{}, ErrTopicClosed
	}

	t.seq++
	u := TransientUpdate{ID: id, Seq: t.seq, Time: time.Now(), Transient: v}
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
func (t *TransientTopic) Latest() (TransientUpdate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest, t.has
}

// Seq returns the current sequence number.
func (t *TransientTopic) Seq() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seq
}

// Subscribe returns a channel that receives future updates.
func (t *TransientTopic) Subscribe() <-chan TransientUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan TransientUpdate, subscriberBuffer)
	t.subscribers = append(t.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (t *TransientTopic) Unsubscribe(ch <-chan TransientUpdate) {
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
func (t *TransientTopic) Close() {
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
