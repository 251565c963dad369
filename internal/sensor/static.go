package sensor

import (
	"context"
	"time"
)

// StaticSource returns the same values on every call, stamped with the
// current time. It stands in for real hardware during dry runs.
type StaticSource struct {
	Values Reading

	// Now stamps readings. Defaults to time.Now.
	Now func() time.Time
}

// Sample returns Values with a fresh timestamp.
func (s *StaticSource) Sample(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	r := s.Values
	r.Timestamp = time.Duration(now().UnixNano())
	return r, nil
}
