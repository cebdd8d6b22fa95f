package signals

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// subscriberBuffer is the per-subscriber channel capacity. Publishers
// never block; a subscriber that falls this far behind misses updates and
// should re-read Latest.
const subscriberBuffer = 10

// Hub bundles the daemon's signal topics.
type Hub struct {
	Music         *MusicTopic
	Battery       *BatteryTopic
	SneakPeek     *TransientTopic
	ExpandingView *TransientTopic
}

// NewHub creates all topics empty.
func NewHub() *Hub {
	return &Hub{
		Music:         NewMusicTopic(),
		Battery:       NewBatteryTopic(),
		SneakPeek:     NewTransientTopic(),
		ExpandingView: NewTransientTopic(),
	}
}

// Close closes every topic and its subscriber channels.
func (h *Hub) Close() {
	h.Music.Close()
	h.Battery.Close()
	h.SneakPeek.Close()
	h.ExpandingView.Close()
}

// newEventID mints a ULID identifying one published update.
func newEventID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate event id: %w", err)
	}
	return id.String(), nil
}

// Errors
var (
	ErrTopicClosed = signalError("topic is closed")
)

type signalError string

func (e signalError) Error() string {
	return string(e)
}
