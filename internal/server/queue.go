package server

import (
	"context"
	"sync"
	"time"
)

// Queue is an unbounded FIFO handing items from one producer goroutine to
// one consumer goroutine.
//
// Push never blocks. Receive blocks until an item is available or the
// timeout elapses.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T

	// ready holds at most one pending wakeup for the consumer.
	ready chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{}, 1)}
}

// Push appends item and wakes a waiting consumer.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Receive returns the oldest item, waiting up to timeout for one to arrive.
// A non-positive timeout polls without waiting.
func (q *Queue[T]) Receive(timeout time.Duration) (T, bool) {
	return q.ReceiveContext(context.Background(), timeout)
}

// ReceiveContext is Receive that also gives up when ctx is done.
func (q *Queue[T]) ReceiveContext(ctx context.Context, timeout time.Duration) (T, bool) {
	if item, ok := q.pop(); ok {
		return item, true
	}

	var zero T
	if timeout <= 0 {
		return zero, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.ready:
			// A wakeup can be stale if its item was taken by the fast path.
			if item, ok := q.pop(); ok {
				return item, true
			}
		case <-timer.C:
			return q.pop()
		case <-ctx.Done():
			return zero, false
		}
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		// Release the backing array once drained.
		q.items = nil
	}
	return item, true
}
