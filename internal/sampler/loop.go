// Package sampler runs the sampling loop of sensorlogd.
//
// The loop is the only goroutine touching the retention chain. Once per
// period it takes a sample, ingests it, runs one cascade pass and then
// serves queued snapshot clients until the next sampling instant.
package sampler

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/xtxerr/sensorlog/config"
	"github.com/xtxerr/sensorlog/internal/errors"
	"github.com/xtxerr/sensorlog/internal/logging"
	"github.com/xtxerr/sensorlog/internal/storage/retention"
	"github.com/xtxerr/sensorlog/internal/wire"
)

var log = logging.Component("sampler")

// Clients is the consumer side of the connection handoff.
type Clients interface {
	// Receive waits up to timeout for the next connection.
	Receive(ctx context.Context, timeout time.Duration) (net.Conn, bool)

	// Serve writes one response to conn and closes it.
	Serve(conn net.Conn, write func(io.Writer) error) error
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds the collaborators of a Loop.
type Config[T, A any] struct {
	// Chain receives every sample (required).
	Chain *retention.Chain[T, A]

	// Source produces samples (required).
	Source Source[T]

	// Encode renders one sample into a snapshot (required).
	Encode wire.Encoder[T]

	// Clients delivers snapshot requests. Nil means nobody is served and
	// the loop just sleeps between samples.
	Clients Clients

	// Period is the sampling period.
	Period time.Duration

	// StatsEvery logs statistics every n periods. Zero disables it.
	StatsEvery int
}

// =============================================================================
// Loop
// =============================================================================

// Loop is the sampling loop.
type Loop[T, A any] struct {
	chain      *retention.Chain[T, A]
	source     Source[T]
	encode     wire.Encoder[T]
	clients    Clients
	period     time.Duration
	statsEvery int

	stats   Stats
	latency *Latency
}

// New creates a sampling loop.
func New[T, A any](cfg Config[T, A]) (*Loop[T, A], error) {
	verrs := errors.NewValidationErrors()
	if cfg.Chain == nil {
		verrs.AddMissing("chain")
	}
	if cfg.Source == nil {
		verrs.AddMissing("source")
	}
	if cfg.Encode == nil {
		verrs.AddMissing("encode")
	}
	if cfg.Period < 0 {
		verrs.AddField("period", "must not be negative")
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	period := cfg.Period
	if period == 0 {
		period = config.DefaultSamplePeriod
	}

	return &Loop[T, A]{
		chain:      cfg.Chain,
		source:     cfg.Source,
		encode:     cfg.Encode,
		clients:    cfg.Clients,
		period:     period,
		statsEvery: cfg.StatsEvery,
		latency:    NewLatency(),
	}, nil
}

// Run samples once per period until ctx is done. It always returns the
// context's error.
func (l *Loop[T, A]) Run(ctx context.Context) error {
	log.Info("sampling started", "period", l.period, "tiers", l.chain.Depth())

	next := time.Now().Add(l.period)
	for {
		if err := l.Step(ctx, next); err != nil {
			log.Info("sampling stopped", "periods", l.stats.Periods)
			return err
		}

		next = next.Add(l.period)
		if now := time.Now(); !next.After(now) {
			// Sampling or serving overran whole periods; skip them.
			missed := now.Sub(next)/l.period + 1
			next = next.Add(missed * l.period)
			log.Warn("sampling fell behind", "missed_periods", int64(missed))
		}
	}
}

// Step runs one period: sample, ingest, reduce, then serve clients until
// deadline. It returns non-nil only when ctx is done.
func (l *Loop[T, A]) Step(ctx context.Context, deadline time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.stats.Periods++

	sample, err := l.source.Sample(ctx)
	switch {
	case err == nil:
		l.stats.Samples++
		if !l.chain.Ingest(sample) {
			l.stats.DroppedSamples++
		}
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		// No sample is synthesized for a failed period.
		l.stats.SampleFailures++
		log.Warn("sample failed, period skipped", "error", err)
	}

	result := l.chain.Reduce()
	if result.Changed() {
		log.Debug("cascade pass", "reduced", result.Reduced, "discarded", result.Discarded)
	}

	if l.statsEvery > 0 && l.stats.Periods%int64(l.statsEvery) == 0 {
		l.logStats()
	}

	return l.drain(ctx, deadline)
}

// drain serves queued clients until deadline.
func (l *Loop[T, A]) drain(ctx context.Context, deadline time.Time) error {
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}

		if l.clients == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(remaining):
				return nil
			}
		}

		conn, ok := l.clients.Receive(ctx, remaining)
		if err := ctx.Err(); err != nil {
			if ok {
				conn.Close()
			}
			return err
		}
		if !ok {
			continue
		}

		l.serve(conn)
	}
}

func (l *Loop[T, A]) serve(conn net.Conn) {
	start := time.Now()
	err := l.clients.Serve(conn, l.WriteSnapshot)
	l.latency.Observe(time.Since(start))

	if err != nil {
		l.stats.SnapshotFailures++
		return
	}
	l.stats.Snapshots++
}

// WriteSnapshot writes the current contents of the chain to w.
func (l *Loop[T, A]) WriteSnapshot(w io.Writer) error {
	return wire.WriteSnapshot(w, l.chain.Tiers(), l.encode)
}

// Stats returns the loop counters.
func (l *Loop[T, A]) Stats() Stats {
	return l.stats
}

// Latency returns the snapshot write latency window.
func (l *Loop[T, A]) Latency() *Latency {
	return l.latency
}

func (l *Loop[T, A]) logStats() {
	cs := l.chain.Stats()

	var occupancy strings.Builder
	var drops int64
	for i, ts := range cs.Tiers {
		if i > 0 {
			occupancy.WriteByte(' ')
		}
		fmt.Fprintf(&occupancy, "%s=%d/%d", ts.Name, ts.Count, ts.Capacity)
		drops += ts.DropCount
	}

	lat := l.latency.Summary()
	l.latency.Reset()

	log.Info("stats",
		"periods", l.stats.Periods,
		"samples", l.stats.Samples,
		"sample_failures", l.stats.SampleFailures,
		"retained", l.chain.Len(),
		"tiers", occupancy.String(),
		"dropped", drops,
		"discarded", cs.Discarded,
		"snapshots", l.stats.Snapshots,
		"snapshot_failures", l.stats.SnapshotFailures,
		"write_count", lat.Count,
		"write_p50_ms", lat.P50,
		"write_p99_ms", lat.P99)
}
