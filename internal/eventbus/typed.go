// Package eventbus fans cycle events out to in-process observers such as
// the metrics collector.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the channel capacity given to each subscriber.
const DefaultBuffer = 8

// TypedBus is a type-safe publish/subscribe bus for events of type T.
// Publishing never blocks; events for a subscriber whose buffer is full are
// dropped and counted.
type TypedBus[T any] struct {
	mu      sync.RWMutex
	subs    []chan T
	buffer  int
	closed  bool
	dropped atomic.Uint64
}

// NewTyped creates a new TypedBus with DefaultBuffer slots per subscriber.
func NewTyped[T any]() *TypedBus[T] { return NewTypedSize[T](DefaultBuffer) }

// NewTypedSize creates a bus with the given per-subscriber buffer.
func NewTypedSize[T any](buffer int) *TypedBus[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &TypedBus[T]{buffer: buffer}
}

// Publish sends the event to all subscribers.
func (b *TypedBus[T]) Publish(e T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers a subscriber and returns its channel.
func (b *TypedBus[T]) Subscribe() <-chan T {
	ch := make(chan T, b.buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *TypedBus[T]) Unsubscribe(sub <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Subscribers returns the number of active subscribers.
func (b *TypedBus[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were discarded on full buffers.
func (b *TypedBus[T]) Dropped() uint64 { return b.dropped.Load() }

// Close closes the bus and all subscriber channels.
func (b *TypedBus[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.mu.Unlock()
}
