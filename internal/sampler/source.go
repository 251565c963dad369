package sampler

import (
	"context"
	"fmt"
	"time"

	"github.com/xtxerr/sensorlog/internal/errors"
)

// Source produces one sample per call.
type Source[T any] interface {
	Sample(ctx context.Context) (T, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc[T any] func(ctx context.Context) (T, error)

// Sample calls f.
func (f SourceFunc[T]) Sample(ctx context.Context) (T, error) {
	return f(ctx)
}

// Retry wraps src so that retriable failures are attempted again, up to
// attempts calls in total with backoff between them. Non-retriable errors
// are returned immediately. With attempts <= 1, src is returned unchanged.
func Retry[T any](src Source[T], attempts int, backoff time.Duration) Source[T] {
	if attempts <= 1 {
		return src
	}
	return &retrySource[T]{src: src, attempts: attempts, backoff: backoff}
}

type retrySource[T any] struct {
	src      Source[T]
	attempts int
	backoff  time.Duration
}

func (r *retrySource[T]) Sample(ctx context.Context) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(r.backoff):
			}
		}

		sample, err := r.src.Sample(ctx)
		if err == nil {
			return sample, nil
		}
		lastErr = err

		if !errors.IsRetriable(err) {
			return zero, err
		}
		log.Debug("sample attempt failed", "attempt", attempt, "of", r.attempts, "error", err)
	}

	return zero, fmt.Errorf("after %d attempts: %w", r.attempts, lastErr)
}
