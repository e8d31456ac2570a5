package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultBufferSize = 64

// Broker fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event and the miss is counted. Publish runs
// on the capture loop, so a stalled display must not hold it up.
type Broker[T any] struct {
	mu     sync.RWMutex
	subs   map[*subscription[T]]struct{}
	closed bool
	size   int

	seq     atomic.Uint64
	dropped atomic.Int64
	last    atomic.Pointer[Event[T]]
}

type subscription[T any] struct {
	ch   chan Event[T]
	once sync.Once
}

func (s *subscription[T]) close() {
	s.once.Do(func() { close(s.ch) })
}

// NewBroker creates a broker whose subscribers buffer 64 events.
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](defaultBufferSize)
}

// NewBrokerWithBuffer creates a broker whose subscribers buffer size events.
func NewBrokerWithBuffer[T any](size int) *Broker[T] {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Broker[T]{
		subs: make(map[*subscription[T]]struct{}),
		size: size,
	}
}

// Subscribe returns a channel of events published from now on. The channel
// is closed when ctx is done or the broker is closed.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	sub := &subscription[T]{ch: make(chan Event[T], b.size)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.close()
		return sub.ch
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	context.AfterFunc(ctx, func() { b.unsubscribe(sub) })
	return sub.ch
}

func (b *Broker[T]) unsubscribe(sub *subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		sub.close()
	}
}

// Publish sends an event to all subscribers and returns how many received it.
func (b *Broker[T]) Publish(eventType EventType, payload T) int {
	event := Event[T]{
		Seq:       b.seq.Add(1),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	b.last.Store(&event)

	delivered := 0
	for sub := range b.subs {
		select {
		case sub.ch <- event:
			delivered++
		default:
			b.dropped.Add(1)
		}
	}
	return delivered
}

// Last returns the most recently published event.
func (b *Broker[T]) Last() (Event[T], bool) {
	if ev := b.last.Load(); ev != nil {
		return *ev, true
	}
	return Event[T]{}, false
}

// Dropped returns the number of deliveries skipped because a subscriber was full.
func (b *Broker[T]) Dropped() int64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel. Later Subscribe calls get a closed
// channel and Publish becomes a no-op.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.close()
	}
	b.subs = nil
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
