package signals

import (
	"sync"
	"time"
)

// BatteryState is the charge direction reported by the power supply.
type BatteryState string

const (
	// BatteryCharging means the supply is gaining charge.
	BatteryCharging BatteryState = "charging"
	// BatteryDischarging means the system runs on battery.
	BatteryDischarging BatteryState = "discharging"
	// BatteryFull means the supply is fully charged.
	BatteryFull BatteryState = "full"
	// BatteryUnknown covers states the power daemon does not classify.
	BatteryUnknown BatteryState = "unknown"
)

// Battery describes the primary power supply.
type Battery struct {
	Present     bool          `json:"present"`
	Percentage  float64       `json:"percentage"`
	State       BatteryState  `json:"state,omitempty"`
	OnBattery   bool          `json:"on_battery"`
	TimeToEmpty time.Duration `json:"time_to_empty,omitempty"`
	TimeToFull  time.Duration `json:"time_to_full,omitempty"`
}

// BatteryUpdate is one published battery change.
type BatteryUpdate struct {
	ID      string    `json:"id"`
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Battery Battery   `json:"battery"`
}

// BatteryTopic fans battery updates out to subscribers and keeps the
// latest value for snapshot reads.
type BatteryTopic struct {
	mu          sync.RWMutex
	latest      BatteryUpdate
	has         bool
	seq         uint64
	subscribers []chan BatteryUpdate
	closed      bool
}

// NewBatteryTopic creates an empty topic.
func NewBatteryTopic() *BatteryTopic {
	return &BatteryTopic{subscribers: make([]chan BatteryUpdate, 0)}
}

// Publish stamps v with an event ID and sequence number and fans it out.
func (t *BatteryTopic) Publish(v Battery) (BatteryUpdate, error) {
	id, err := newEventID()
	if err != nil {
		return BatteryUpdate{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return BatteryUpdate{}, ErrTopicClosed
	}

	t.seq++
	u := BatteryUpdate{ID: id, Seq: t.seq, Time: time.Now(), Battery: v}
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
func (t *BatteryTopic) Latest() (BatteryUpdate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest, t.has
}

// Seq returns the current sequence number.
func (t *BatteryTopic) Seq() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seq
}

// Subscribe returns a channel that receives future updates.
func (t *BatteryTopic) Subscribe() <-chan BatteryUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan BatteryUpdate, subscriberBuffer)
	t.subscribers = append(t.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (t *BatteryTopic) Unsubscribe(ch <-chan BatteryUpdate) {
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
func (t *BatteryTopic) Close() {
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
