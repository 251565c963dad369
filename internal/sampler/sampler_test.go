package sampler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xtxerr/sensorlog/internal/errors"
	"github.com/xtxerr/sensorlog/internal/logging"
	"github.com/xtxerr/sensorlog/internal/sensor"
	"github.com/xtxerr/sensorlog/internal/server"
	"github.com/xtxerr/sensorlog/internal/storage/retention"
	"github.com/xtxerr/sensorlog/internal/storage/types"
	testutil "github.com/xtxerr/sensorlog/internal/testing"
)

// sequence yields readings whose every field is derived from 1, 2, 3, ...
func sequence() Source[sensor.Reading] {
	var n int32
	return SourceFunc[sensor.Reading](func(context.Context) (sensor.Reading, error) {
		n++
		return reading(n), nil
	})
}

func reading(n int32) sensor.Reading {
	return sensor.Reading{
		Timestamp:  time.Duration(n) * time.Second,
		Pressure:   float32(n),
		BMP280Temp: n * 1000,
		HTU21Temp:  n * 1000,
		Humidity:   n * 1000,
	}
}

func newChain(t *testing.T, specs ...types.TierSpec) *retention.Chain[sensor.Reading, sensor.Total] {
	t.Helper()
	chain, err := retention.NewChain[sensor.Reading, sensor.Total](specs, sensor.Average{})
	require.NoError(t, err)
	return chain
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config[sensor.Reading, sensor.Total]{})
	require.Error(t, err)
	require.True(t, errors.IsValidation(err), "expected validation error, got %v", err)
}

// Five raw samples into [(5,4),(5,4)] leave 3,4,5 in the first tier and the
// mean of 1 and 2 in the second; a client sees exactly those four.
func TestLoop_EndToEnd(t *testing.T) {
	srv, err := server.Start(&server.Config{
		Address:      testutil.SocketPath(t),
		WriteTimeout: time.Second,
	})
	require.NoError(t, err)
	defer srv.Close()

	chain := newChain(t,
		types.TierSpec{Name: "fine", Capacity: 5, Limit: 4},
		types.TierSpec{Name: "coarse", Capacity: 5, Limit: 4},
	)

	loop, err := New(Config[sensor.Reading, sensor.Total]{
		Chain:   chain,
		Source:  sequence(),
		Encode:  sensor.EncodeJSON,
		Clients: srv,
		Period:  time.Second,
	})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, loop.Step(ctx, time.Now()))
	}

	got := make(chan string, 1)
	gt := testutil.NewGoroutineTest(t)
	gt.Go(func() error {
		conn, err := net.Dial("unix", srv.Addr())
		if err != nil {
			return fmt.Errorf("dial: %w", err)
		}
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		body, err := io.ReadAll(conn)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		got <- string(body)
		return nil
	})

	require.NoError(t, testutil.Eventually(5*time.Second, 5*time.Millisecond, func() bool {
		return srv.Conns().Len() == 1
	}))

	require.NoError(t, loop.Step(ctx, time.Now().Add(200*time.Millisecond)))
	gt.Wait()

	want := "[" + strings.Join([]string{
		`{"timestamp":3000,"pressure":30.00,"bmp280Temp":3.000,"htu21Temp":3.000,"humidity":3.00}`,
		`{"timestamp":4000,"pressure":40.00,"bmp280Temp":4.000,"htu21Temp":4.000,"humidity":4.00}`,
		`{"timestamp":5000,"pressure":50.00,"bmp280Temp":5.000,"htu21Temp":5.000,"humidity":5.00}`,
		`{"timestamp":1500,"pressure":15.00,"bmp280Temp":1.500,"htu21Temp":1.500,"humidity":1.50}`,
	}, ",") + "]\n"
	require.Equal(t, want, <-got)

	stats := loop.Stats()
	require.Equal(t, int64(5), stats.Samples)
	require.Equal(t, int64(1), stats.Snapshots)
	require.Equal(t, int64(1), loop.Latency().Summary().Count)
}

func TestLoop_SampleFailureSkipsPeriod(t *testing.T) {
	chain := newChain(t, types.TierSpec{Capacity: 4, Limit: 2})

	var calls atomic.Int32
	src := SourceFunc[sensor.Reading](func(context.Context) (sensor.Reading, error) {
		if calls.Add(1) == 2 {
			return sensor.Reading{}, errors.NewSampleUnavailable("pressure", io.ErrUnexpectedEOF)
		}
		return reading(calls.Load()), nil
	})

	loop, err := New(Config[sensor.Reading, sensor.Total]{
		Chain:  chain,
		Source: src,
		Encode: sensor.EncodeJSON,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, loop.Step(context.Background(), time.Now()))
	}

	stats := loop.Stats()
	require.Equal(t, int64(3), stats.Periods)
	require.Equal(t, int64(2), stats.Samples)
	require.Equal(t, int64(1), stats.SampleFailures)
	require.Equal(t, 2, chain.Len(), "failed period must not add a sample")
}

func TestLoop_WriteSnapshot(t *testing.T) {
	chain := newChain(t, types.TierSpec{Capacity: 4, Limit: 4})
	chain.Ingest(reading(7))

	loop, err := New(Config[sensor.Reading, sensor.Total]{
		Chain:  chain,
		Source: sequence(),
		Encode: sensor.EncodeJSON,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, loop.WriteSnapshot(&buf))
	require.Equal(t,
		`[{"timestamp":7000,"pressure":70.00,"bmp280Temp":7.000,"htu21Temp":7.000,"humidity":7.00}]`+"\n",
		buf.String())
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	chain := newChain(t, types.DefaultChain()...)

	loop, err := New(Config[sensor.Reading, sensor.Total]{
		Chain:  chain,
		Source: sequence(),
		Encode: sensor.EncodeJSON,
		Period: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = testutil.WithTimeout(5*time.Second, func() error {
		return loop.Run(ctx)
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, loop.Stats().Samples, int64(2))
}

func TestLoop_LogsStats(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(&buf, slog.LevelInfo, true)
	t.Cleanup(func() { logging.Init(io.Discard, slog.LevelInfo, false) })

	chain := newChain(t, types.TierSpec{Name: "minute", Capacity: 4, Limit: 2})

	loop, err := New(Config[sensor.Reading, sensor.Total]{
		Chain:      chain,
		Source:     sequence(),
		Encode:     sensor.EncodeJSON,
		StatsEvery: 2,
	})
	require.NoError(t, err)

	require.NoError(t, loop.Step(context.Background(), time.Now()))
	require.NotContains(t, buf.String(), `"msg":"stats"`)

	require.NoError(t, loop.Step(context.Background(), time.Now()))
	out := buf.String()
	require.Contains(t, out, `"msg":"stats"`)
	require.Contains(t, out, `"tiers":"minute=2/4"`)
	require.Contains(t, out, `"write_p99_ms"`)
}

func TestRetry(t *testing.T) {
	var calls int
	flaky := SourceFunc[int](func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.NewSampleUnavailable("x", io.ErrUnexpectedEOF)
		}
		return 42, nil
	})

	v, err := Retry[int](flaky, 3, time.Millisecond).Sample(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, 3, calls)

	calls = 0
	_, err = Retry[int](flaky, 2, time.Millisecond).Sample(context.Background())
	require.ErrorIs(t, err, errors.ErrSampleUnavailable)
	require.Equal(t, 2, calls)
}

func TestRetry_NonRetriable(t *testing.T) {
	var calls int
	broken := SourceFunc[int](func(context.Context) (int, error) {
		calls++
		return 0, errors.ErrUnsupportedSource
	})

	_, err := Retry[int](broken, 5, time.Millisecond).Sample(context.Background())
	require.ErrorIs(t, err, errors.ErrUnsupportedSource)
	require.Equal(t, 1, calls)
}

func TestRetry_Single(t *testing.T) {
	var src Source[sensor.Reading] = &sensor.StaticSource{}
	require.Same(t, src, Retry(src, 1, time.Second))
}

func TestLatency(t *testing.T) {
	l := NewLatency()
	require.Equal(t, int64(0), l.Summary().Count)

	for i := 1; i <= 100; i++ {
		l.Observe(time.Duration(i) * time.Millisecond)
	}

	s := l.Summary()
	require.Equal(t, int64(100), s.Count)
	require.InDelta(t, 50.5, s.Avg, 0.001)
	require.InDelta(t, 1, s.Min, 0.001)
	require.InDelta(t, 100, s.Max, 0.001)
	require.InDelta(t, 50, s.P50, 2)
	require.InDelta(t, 99, s.P99, 2)

	l.Reset()
	require.Equal(t, int64(0), l.Summary().Count)
}
