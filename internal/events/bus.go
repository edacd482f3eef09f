package events

import (
	"sync"
)

// DefaultBufferSize is used when a subscriber asks for a buffer <= 0.
const DefaultBufferSize = 256

// Publisher is the producer side of the bus.
type Publisher interface {
	Publish(topic string, event Event)
}

type subscriber struct {
	topic string // "" receives every topic
	ch    chan Event
}

// EventBus is a channel-based pub-sub event bus.
// Publishing never blocks; a subscriber whose buffer is full misses the event.
type EventBus struct {
	mu     sync.RWMutex
	subs   []subscriber
	closed bool
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe returns a channel receiving events published to topic.
func (b *EventBus) Subscribe(topic string, bufSize int) <-chan Event {
	return b.subscribe(topic, bufSize)
}

// SubscribeAll returns a channel receiving events from every topic.
func (b *EventBus) SubscribeAll(bufSize int) <-chan Event {
	return b.subscribe("", bufSize)
}

func (b *EventBus) subscribe(topic string, bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.subs = append(b.subs, subscriber{topic: topic, ch: ch})
	return ch
}

// Publish delivers event to subscribers of topic and to all-topic subscribers.
// A nil bus is a valid no-op publisher.
func (b *EventBus) Publish(topic string, event Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, s := range b.subs {
		if s.topic != "" && s.topic != topic {
			continue
		}
		select {
		case s.ch <- event:
		default:
		}
	}
}

// Close closes the bus and every subscriber channel. Safe to call more than once.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, s := range b.subs {
		close(s.ch)
	}
}
