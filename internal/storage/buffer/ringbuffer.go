package buffer

import (
	"fmt"
	"iter"
)

// RingBuffer is a fixed-capacity FIFO of samples.
//
// The backing array is allocated at full capacity and indexed modulo
// capacity; slots are reused in place. A push into a full buffer is
// rejected, never overwritten. RingBuffer is not safe for concurrent use:
// it belongs to the goroutine that owns the retention chain.
type RingBuffer[T any] struct {
	data     []T
	head     int // Next write position
	tail     int // Oldest data position
	count    int // Current number of elements
	capacity int

	// Statistics
	pushCount int64
	popCount  int64
	dropCount int64
}

// New creates a new RingBuffer with the given capacity.
// It panics if capacity is not positive.
func New[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("buffer: capacity must be positive, got %d", capacity))
	}
	return &RingBuffer[T]{
		data:     make([]T, capacity),
		capacity: capacity,
	}
}

// Push adds a sample to the buffer.
// Returns false if the buffer is full and the sample was dropped.
func (rb *RingBuffer[T]) Push(sample T) bool {
	if rb.count >= rb.capacity {
		rb.dropCount++
		return false
	}

	rb.data[rb.head] = sample
	rb.head = (rb.head + 1) % rb.capacity
	rb.count++
	rb.pushCount++
	rb.check()

	return true
}

// Pop removes and returns the oldest sample.
// Returns false if the buffer is empty.
func (rb *RingBuffer[T]) Pop() (T, bool) {
	var zero T
	if rb.count == 0 {
		return zero, false
	}

	sample := rb.data[rb.tail]
	rb.data[rb.tail] = zero // Clear for GC
	rb.tail = (rb.tail + 1) % rb.capacity
	rb.count--
	rb.popCount++
	rb.check()

	return sample, true
}

// Peek returns the sample offset positions after the oldest one without
// removing it. Peek(0) is the oldest sample.
// Returns false if offset is outside [0, Len()).
func (rb *RingBuffer[T]) Peek(offset int) (T, bool) {
	if offset < 0 || offset >= rb.count {
		var zero T
		return zero, false
	}
	return rb.data[(rb.tail+offset)%rb.capacity], true
}

// All returns an iterator over the buffered samples from oldest to newest.
//
// The sequence covers the samples present when iteration starts and yields
// at most that many values. It reads slots by position, so mutating the
// buffer while ranging over it yields whatever the slots hold at that point.
func (rb *RingBuffer[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		n := rb.count
		start := rb.tail
		for i := 0; i < n; i++ {
			if !yield(rb.data[(start+i)%rb.capacity]) {
				return
			}
		}
	}
}

// Len returns the current number of samples in the buffer.
func (rb *RingBuffer[T]) Len() int {
	return rb.count
}

// Cap returns the capacity of the buffer.
func (rb *RingBuffer[T]) Cap() int {
	return rb.capacity
}

// IsEmpty returns true if the buffer is empty.
func (rb *RingBuffer[T]) IsEmpty() bool {
	return rb.count == 0
}

// IsFull returns true if the buffer is full.
func (rb *RingBuffer[T]) IsFull() bool {
	return rb.count >= rb.capacity
}

// UsageRatio returns the current usage as a ratio (0.0 - 1.0).
func (rb *RingBuffer[T]) UsageRatio() float64 {
	return float64(rb.count) / float64(rb.capacity)
}

// Stats returns buffer statistics.
func (rb *RingBuffer[T]) Stats() BufferStats {
	return BufferStats{
		Capacity:   rb.capacity,
		Count:      rb.count,
		UsageRatio: rb.UsageRatio(),
		PushCount:  rb.pushCount,
		PopCount:   rb.popCount,
		DropCount:  rb.dropCount,
	}
}

// check panics when the indices no longer describe a valid queue.
func (rb *RingBuffer[T]) check() {
	if rb.count < 0 || rb.count > rb.capacity ||
		rb.head < 0 || rb.head >= rb.capacity ||
		rb.tail < 0 || rb.tail >= rb.capacity ||
		(rb.tail+rb.count)%rb.capacity != rb.head {
		panic(fmt.Sprintf("buffer: corrupted indices head=%d tail=%d count=%d capacity=%d",
			rb.head, rb.tail, rb.count, rb.capacity))
	}
}

// BufferStats holds buffer statistics.
type BufferStats struct {
	Capacity   int
	Count      int
	UsageRatio float64
	PushCount  int64
	PopCount   int64
	DropCount  int64
}
