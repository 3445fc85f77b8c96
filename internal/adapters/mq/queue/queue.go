// Package queue defines the contract for enqueuing and consuming jobs.
//
// The only implementation is an in-memory bounded queue over a buffered
// channel.
package queue

import (
	"context"
	"sync"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 4096
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds an item to the queue.
	// Returns false if the queue is full or closed and the item was not enqueued.
	Enqueue(ctx context.Context, item T) bool

	// Dequeue returns a channel that will receive items as they become available.
	// The channel will be closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan T

	// Len returns the current number of queued items.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new items can be enqueued; queued items are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// Observer receives queue size changes and rejections.
type Observer interface {
	Size(size int)
	Rejected(reason string)
}

type nopObserver struct{}

func (nopObserver) Size(int)        {}
func (nopObserver) Rejected(string) {}

// Rejection reasons.
const (
	RejectClosed    = "closed"
	RejectFull      = "full"
	RejectCancelled = "cancelled"
)

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	items    chan T
	capacity int
	observer Observer

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	cfg := config{capacity: defaultQueueCapacity, observer: nopObserver{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	q := &InMemoryQueue[T]{
		items:    make(chan T, cfg.capacity),
		capacity: cfg.capacity,
		observer: cfg.observer,
	}
	q.observer.Size(0)
	return q
}

// Capacity returns the maximum number of queued items.
func (q *InMemoryQueue[T]) Capacity() int { return q.capacity }

// Enqueue adds an item to the queue.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.observer.Rejected(RejectClosed)
		return false
	}
	if ctx.Err() != nil {
		q.observer.Rejected(RejectCancelled)
		return false
	}

	select {
	case q.items <- item:
		q.observer.Size(len(q.items))
		return true
	default:
		q.observer.Rejected(RejectFull)
		return false
	}
}

// Dequeue returns a channel that will receive items as they become available.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case item, ok := <-q.items:
				if !ok {
					return
				}
				q.observer.Size(len(q.items))
				select {
				case out <- item:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued items.
func (q *InMemoryQueue[T]) Len(_ context.Context) int {
	return len(q.items)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
