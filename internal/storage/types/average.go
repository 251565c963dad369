package types

// Averager is the capability that makes a sample type T retainable.
//
// A is the accumulator type paired with T. Accumulators widen numeric
// fields so that summing many samples cannot overflow; Divide narrows back
// to the width of T. Divide is only ever called with count >= 1.
type Averager[T, A any] interface {
	// Empty returns the zero accumulator.
	Empty() A

	// Accumulate folds one sample into acc.
	Accumulate(sample T, acc *A)

	// Divide returns a sample whose fields are the accumulated fields
	// divided by count.
	Divide(acc A, count int) T
}

// Mean accumulates samples with avg and divides by their count.
// It returns false for an empty slice.
func Mean[T, A any](avg Averager[T, A], samples []T) (T, bool) {
	if len(samples) == 0 {
		var zero T
		return zero, false
	}
	acc := avg.Empty()
	for _, s := range samples {
		avg.Accumulate(s, &acc)
	}
	return avg.Divide(acc, len(samples)), true
}
