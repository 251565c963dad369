package sampler

import (
	"math"
	"sync"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
)

// Latency tracks snapshot write durations over a reporting window.
// Quantiles come from a DDSketch with 1% relative accuracy.
type Latency struct {
	mu sync.Mutex

	count int64
	sum   float64
	min   float64
	max   float64

	// nil if the sketch could not be created
	sketch *ddsketch.DDSketch
}

// NewLatency creates an empty latency window.
func NewLatency() *Latency {
	l := &Latency{}
	l.reset()
	return l
}

// Observe records one write duration.
func (l *Latency) Observe(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	l.sum += ms
	if ms < l.min {
		l.min = ms
	}
	if ms > l.max {
		l.max = ms
	}

	if l.sketch != nil {
		l.sketch.Add(ms)
	}
}

// LatencySummary is a point-in-time summary in milliseconds.
type LatencySummary struct {
	Count int64
	Avg   float64
	Min   float64
	Max   float64
	P50   float64
	P99   float64
}

// Summary returns the figures of the current window.
func (l *Latency) Summary() LatencySummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := LatencySummary{Count: l.count}
	if l.count == 0 {
		return s
	}

	s.Avg = l.sum / float64(l.count)
	s.Min = l.min
	s.Max = l.max

	if l.sketch != nil {
		s.P50, _ = l.sketch.GetValueAtQuantile(0.50)
		s.P99, _ = l.sketch.GetValueAtQuantile(0.99)
	}
	return s
}

// Reset starts a new window.
func (l *Latency) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reset()
}

func (l *Latency) reset() {
	l.count = 0
	l.sum = 0
	l.min = math.MaxFloat64
	l.max = -math.MaxFloat64

	// DDSketch has no Clear method
	sketch, err := ddsketch.NewDefaultDDSketch(0.01)
	if err == nil {
		l.sketch = sketch
	} else {
		l.sketch = nil
	}
}

// Stats holds sampling loop counters since start.
type Stats struct {
	Periods          int64
	Samples          int64
	SampleFailures   int64
	DroppedSamples   int64
	Snapshots        int64
	SnapshotFailures int64
}
