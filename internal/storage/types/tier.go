package types

import (
	"fmt"
	"time"

	"github.com/xtxerr/sensorlog/config"
	"github.com/xtxerr/sensorlog/internal/errors"
	"github.com/xtxerr/sensorlog/internal/validation"
)

// MinTierLimit is the smallest limit that can be halved into a non-empty
// reduction.
const MinTierLimit = 2

// TierSpec describes one resolution level of a retention chain.
//
// Limit is the occupancy above which the tier is reduced. Capacity is the
// storage size and may exceed Limit so that the tier can briefly overshoot
// before the cascade pass runs.
type TierSpec struct {
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
	Limit    int    `yaml:"limit"`
}

// String returns the string representation of the tier spec.
func (s TierSpec) String() string {
	return fmt.Sprintf("%s(capacity=%d limit=%d)", s.Name, s.Capacity, s.Limit)
}

// Batch returns the number of samples one reduction of this tier averages.
func (s TierSpec) Batch() int {
	return s.Limit / 2
}

// Validate checks a single tier spec. index is its position in the chain.
func (s TierSpec) Validate(index int) error {
	switch {
	case s.Capacity < 1:
		return errors.NewInvalidTier(index, s.Name, fmt.Sprintf("capacity %d must be positive", s.Capacity))
	case s.Limit < MinTierLimit:
		return errors.NewInvalidTier(index, s.Name, fmt.Sprintf("limit %d must be at least %d", s.Limit, MinTierLimit))
	case s.Limit > s.Capacity:
		return errors.NewInvalidTier(index, s.Name, fmt.Sprintf("limit %d exceeds capacity %d", s.Limit, s.Capacity))
	}
	if s.Name != "" {
		if err := validation.ValidateTierName(s.Name); err != nil {
			return errors.NewInvalidTier(index, s.Name, err.Error())
		}
	}
	return nil
}

// ValidateChain checks an ordered list of tier specs.
func ValidateChain(specs []TierSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("no tiers configured: %w", errors.ErrInvalidChain)
	}

	verrs := errors.NewValidationErrors()
	seen := make(map[string]int, len(specs))
	for i, s := range specs {
		verrs.Add(s.Validate(i))
		if s.Name == "" {
			continue
		}
		if j, dup := seen[s.Name]; dup {
			verrs.Add(errors.NewInvalidTier(i, s.Name, fmt.Sprintf("name already used by tier %d", j)))
		}
		seen[s.Name] = i
	}
	return verrs.Err()
}

// DefaultChain returns the minute/hour/day/month chain.
func DefaultChain() []TierSpec {
	return []TierSpec{
		{Name: "minute", Capacity: config.DefaultMinuteCapacity, Limit: config.DefaultMinuteLimit},
		{Name: "hour", Capacity: config.DefaultHourCapacity, Limit: config.DefaultHourLimit},
		{Name: "day", Capacity: config.DefaultDayCapacity, Limit: config.DefaultDayLimit},
		{Name: "month", Capacity: config.DefaultMonthCapacity, Limit: config.DefaultMonthLimit},
	}
}

// Resolutions returns the time span one sample of each tier represents,
// given the sampling period of the first tier.
func Resolutions(specs []TierSpec, period time.Duration) []time.Duration {
	out := make([]time.Duration, len(specs))
	span := period
	for i, s := range specs {
		out[i] = span
		span *= time.Duration(s.Batch())
	}
	return out
}
