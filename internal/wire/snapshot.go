// Package wire renders the retained history for the snapshot socket.
//
// A snapshot is a single JSON array of every retained sample, tier by tier
// in chain order and oldest to newest within a tier, terminated by a
// newline:
//
//	[{...},{...},{...}]\n
//
// The rendering of a single sample belongs to the sample type; this package
// only frames the array.
package wire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
)

// Source is a tier as seen by the snapshot writer.
type Source[T any] interface {
	All() iter.Seq[T]
}

// Encoder writes one sample as a JSON value.
type Encoder[T any] func(w io.Writer, sample T) error

// WriteSnapshot writes all samples held by tiers to w.
//
// Empty tiers contribute neither samples nor separators. Output is buffered
// and flushed once; a failed write aborts the snapshot.
func WriteSnapshot[T any, S Source[T]](w io.Writer, tiers []S, encode Encoder[T]) error {
	bw := bufio.NewWriter(w)

	if err := bw.WriteByte('['); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	first := true
	for _, tier := range tiers {
		for sample := range tier.All() {
			if !first {
				if err := bw.WriteByte(','); err != nil {
					return fmt.Errorf("write snapshot: %w", err)
				}
			}
			first = false

			if err := encode(bw, sample); err != nil {
				return fmt.Errorf("encode sample: %w", err)
			}
		}
	}

	if _, err := bw.WriteString("]\n"); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	return nil
}

// Snapshot renders tiers into memory.
func Snapshot[T any, S Source[T]](tiers []S, encode Encoder[T]) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, tiers, encode); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
