package app

import (
	"sync"
	"time"
)

// EventType identifies what an Event carries.
type EventType string

const (
	// EventResult carries the status of one analyzed frame.
	EventResult EventType = "result"
	// EventAlert is sent when an alert fires.
	EventAlert EventType = "alert"
	// EventMonitoring is sent when monitoring starts or stops.
	EventMonitoring EventType = "monitoring"
)

// subscriberBuffer is how many events a slow subscriber may fall behind
// before events are dropped for it.
const subscriberBuffer = 32

// Event is published to subscribers.
type Event struct {
	Type    EventType `json:"type"`
	Status  *Status   `json:"status,omitempty"`
	Message string    `json:"message,omitempty"`
	Enabled *bool     `json:"enabled,omitempty"`
	At      time.Time `json:"at"`
}

// broker fans events out to subscribers without blocking the publisher.
type broker struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

func newBroker() *broker {
	return &broker{subs: make(map[chan Event]struct{})}
}

func (b *broker) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
}

func (b *broker) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// Subscribe returns a channel of results, alerts and monitoring changes,
// and a function that ends the subscription. Events are dropped for a
// subscriber that falls too far behind.
func (a *App) Subscribe() (<-chan Event, func()) {
	return a.events.subscribe()
}
