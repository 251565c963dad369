package retention

import (
	"iter"

	"github.com/xtxerr/sensorlog/internal/storage/buffer"
	"github.com/xtxerr/sensorlog/internal/storage/types"
)

// Tier is one resolution level: a bounded FIFO plus the occupancy limit
// that triggers its reduction. A tier knows nothing about its neighbours;
// the Chain moves samples between tiers.
type Tier[T any] struct {
	name  string
	limit int
	buf   *buffer.RingBuffer[T]
}

// NewTier creates a tier from a validated spec.
func NewTier[T any](spec types.TierSpec) *Tier[T] {
	return &Tier[T]{
		name:  spec.Name,
		limit: spec.Limit,
		buf:   buffer.New[T](spec.Capacity),
	}
}

// Add appends a sample. It returns false when the tier is full, in which
// case the sample is dropped and counted.
func (t *Tier[T]) Add(sample T) bool {
	return t.buf.Push(sample)
}

// Name returns the tier name.
func (t *Tier[T]) Name() string { return t.name }

// Limit returns the occupancy threshold above which the tier is reduced.
func (t *Tier[T]) Limit() int { return t.limit }

// Cap returns the storage capacity.
func (t *Tier[T]) Cap() int { return t.buf.Cap() }

// Len returns the number of retained samples.
func (t *Tier[T]) Len() int { return t.buf.Len() }

// IsEmpty returns true if the tier holds no samples.
func (t *Tier[T]) IsEmpty() bool { return t.buf.IsEmpty() }

// OverLimit reports whether the tier needs a reduction.
func (t *Tier[T]) OverLimit() bool { return t.buf.Len() > t.limit }

// All iterates the retained samples from oldest to newest.
func (t *Tier[T]) All() iter.Seq[T] { return t.buf.All() }

// Stats returns the statistics of the underlying buffer.
func (t *Tier[T]) Stats() buffer.BufferStats { return t.buf.Stats() }
