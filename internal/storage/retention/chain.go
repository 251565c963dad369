// Package retention implements the cascading round-robin retention chain.
//
// A chain is an ordered list of tiers from finest to coarsest. Samples are
// ingested into the first tier. Once per sampling period Reduce collapses
// the oldest half-limit of every over-limit tier into one averaged sample
// and carries it into the next tier. The carry off the last tier is lost.
package retention

import (
	"fmt"

	"github.com/xtxerr/sensorlog/internal/errors"
	"github.com/xtxerr/sensorlog/internal/logging"
	"github.com/xtxerr/sensorlog/internal/storage/buffer"
	"github.com/xtxerr/sensorlog/internal/storage/types"
)

var log = logging.Component("retention")

// Chain owns the tiers of one retention configuration.
// It is not safe for concurrent use.
type Chain[T, A any] struct {
	tiers []*Tier[T]
	avg   types.Averager[T, A]

	passes    int64
	discarded int64
}

// ReduceResult describes one cascade pass.
type ReduceResult struct {
	// Reduced lists the indices of the tiers that were reduced, in order.
	Reduced []int

	// Dropped lists the indices of tiers that refused a carry because
	// they were full.
	Dropped []int

	// Discarded is true when the coarsest tier was reduced and its
	// carry had nowhere to go.
	Discarded bool
}

// Changed reports whether the pass modified any tier.
func (r ReduceResult) Changed() bool {
	return len(r.Reduced) > 0
}

// NewChain validates specs and creates the tiers.
// The returned error wraps errors.ErrInvalidChain.
func NewChain[T, A any](specs []types.TierSpec, avg types.Averager[T, A]) (*Chain[T, A], error) {
	if avg == nil {
		return nil, errors.Wrap(errors.ErrInvalidChain, "averager is required")
	}
	if err := types.ValidateChain(specs); err != nil {
		return nil, err
	}

	tiers := make([]*Tier[T], len(specs))
	for i, spec := range specs {
		if spec.Name == "" {
			spec.Name = fmt.Sprintf("tier%d", i)
		}
		tiers[i] = NewTier[T](spec)
	}

	return &Chain[T, A]{tiers: tiers, avg: avg}, nil
}

// Ingest appends a fresh sample to the first tier.
// It returns false if the tier was full and the sample was dropped.
func (c *Chain[T, A]) Ingest(sample T) bool {
	first := c.tiers[0]
	if !first.Add(sample) {
		log.Warn("tier full, sample dropped",
			"error", errors.ErrBufferFull,
			"tier", first.Name(),
			"capacity", first.Cap(),
			"dropped_total", first.Stats().DropCount)
		return false
	}
	return true
}

// Reduce runs one cascade pass over the chain.
//
// A tier is only serviced while every tier before it was over its limit
// in this pass; the first tier within bounds ends the pass.
func (c *Chain[T, A]) Reduce() ReduceResult {
	var result ReduceResult
	var carry T
	hasCarry := false

	c.passes++

	for i, tier := range c.tiers {
		if hasCarry {
			if !tier.Add(carry) {
				result.Dropped = append(result.Dropped, i)
				log.Warn("tier full, carry dropped",
					"error", errors.ErrBufferFull,
					"tier", tier.Name(),
					"capacity", tier.Cap(),
					"dropped_total", tier.Stats().DropCount)
			}
			hasCarry = false
		}

		if !tier.OverLimit() {
			break
		}

		carry = c.reduceTier(tier)
		hasCarry = true
		result.Reduced = append(result.Reduced, i)

		log.Debug("tier reduced",
			"tier", tier.Name(),
			"averaged", tier.Limit()/2,
			"remaining", tier.Len())
	}

	if hasCarry {
		result.Discarded = true
		c.discarded++
	}

	return result
}

// reduceTier averages the oldest Limit/2 samples of tier and removes them.
func (c *Chain[T, A]) reduceTier(tier *Tier[T]) T {
	n := tier.Limit() / 2
	if n < 1 {
		panic(fmt.Sprintf("retention: tier %s has limit %d, nothing to reduce", tier.Name(), tier.Limit()))
	}

	acc := c.avg.Empty()
	peeked := 0
	for i := 0; i < n; i++ {
		sample, ok := tier.buf.Peek(i)
		if !ok {
			break
		}
		c.avg.Accumulate(sample, &acc)
		peeked++
	}

	popped := 0
	for i := 0; i < peeked; i++ {
		if _, ok := tier.buf.Pop(); ok {
			popped++
		}
	}

	if peeked != n || popped != peeked {
		panic(fmt.Sprintf("retention: tier %s reduction mismatch: want %d, peeked %d, popped %d",
			tier.Name(), n, peeked, popped))
	}

	return c.avg.Divide(acc, n)
}

// Tiers returns the tiers in chain order. The slice is a copy; the tiers are not.
func (c *Chain[T, A]) Tiers() []*Tier[T] {
	out := make([]*Tier[T], len(c.tiers))
	copy(out, c.tiers)
	return out
}

// Depth returns the number of tiers.
func (c *Chain[T, A]) Depth() int {
	return len(c.tiers)
}

// Len returns the number of samples retained across all tiers.
func (c *Chain[T, A]) Len() int {
	n := 0
	for _, t := range c.tiers {
		n += t.Len()
	}
	return n
}

// Stats holds chain statistics.
type Stats struct {
	Passes    int64
	Discarded int64
	Tiers     []TierStats
}

// TierStats holds statistics for one tier.
type TierStats struct {
	Name  string
	Limit int
	buffer.BufferStats
}

// Stats returns chain statistics.
func (c *Chain[T, A]) Stats() Stats {
	s := Stats{
		Passes:    c.passes,
		Discarded: c.discarded,
		Tiers:     make([]TierStats, len(c.tiers)),
	}
	for i, t := range c.tiers {
		s.Tiers[i] = TierStats{Name: t.Name(), Limit: t.Limit(), BufferStats: t.Stats()}
	}
	return s
}
