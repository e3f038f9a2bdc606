package event

import (
	"sync"

	"github.com/driftcode/agentserver/pkg/types"
)

// subscriberBufferSize bounds how many undelivered events a single slow
// subscriber can accumulate before older events start being dropped for
// that subscriber only (never for the others, and never recorded as lost
// by the bus itself — push() always succeeds).
const subscriberBufferSize = 256

// Bus is a single-session, single-producer, multi-consumer event
// channel. The zero value is not usable; construct with NewBus.
type Bus struct {
	mu          sync.Mutex
	closed      bool
	subscribers map[int]chan types.Event
	nextID      int
}

// NewBus creates a fresh, open event bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[int]chan types.Event)}
}

// Push delivers an event to every current subscriber. A push after
// Close is silently dropped. Push never blocks on a slow subscriber:
// each subscriber has its own buffered channel, and a full buffer
// drops the oldest queued event to make room rather than stalling the
// producer.
func (b *Bus) Push(e types.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			// Buffer full: drop the oldest queued event for this
			// subscriber and retry once so the newest event always lands.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- e:
			default:
			}
		}
	}
}

// Close signals end-of-stream to all current and future subscribers.
// A push after Close is a no-op. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}

// Subscription is a read-only handle on a Bus's event stream.
type Subscription struct {
	bus *Bus
	id  int
	ch  chan types.Event
}

// Subscribe registers a new subscriber. Iteration yields every event
// pushed before Close in push order; once the queued tail is drained
// the channel closes, signalling "done" to the range loop.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan types.Event, subscriberBufferSize)
	if b.closed {
		close(ch)
		return &Subscription{bus: b, id: -1, ch: ch}
	}

	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch
	return &Subscription{bus: b, id: id, ch: ch}
}

// Events returns the channel to range over. It closes once the bus is
// closed and the queued tail has been drained.
func (s *Subscription) Events() <-chan types.Event {
	return s.ch
}

// Unsubscribe detaches this subscriber from the bus. Safe to call more
// than once, and safe to call after the bus has already closed.
func (s *Subscription) Unsubscribe() {
	if s.id < 0 {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if s.bus.subscribers == nil {
		return
	}
	if ch, ok := s.bus.subscribers[s.id]; ok {
		delete(s.bus.subscribers, s.id)
		close(ch)
	}
}
