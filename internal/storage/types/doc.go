// Package types defines the core data types shared by the storage packages.
//
// Key types:
//   - Averager: how a sample type is summed into an accumulator and divided back
//   - TierSpec: shape of one resolution level (name, capacity, limit)
package types
