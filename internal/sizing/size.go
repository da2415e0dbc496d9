// Package sizing provides overflow-checked size arithmetic and conversions.
package sizing

import "math"

// ToInt converts a uint64 to int, returning overflowErr if it doesn't fit.
func ToInt(size uint64, overflowErr error) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(size), nil
}

// ToInt64 converts a uint64 to int64, returning overflowErr if it doesn't fit.
func ToInt64(size uint64, overflowErr error) (int64, error) {
	if size > uint64(math.MaxInt64) {
		return 0, overflowErr
	}
	return int64(size), nil
}

// AddUint64 adds two uint64 values, returning (result, false) on overflow.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// SumUint64 adds all values, returning (result, false) if any addition overflows.
func SumUint64(values ...uint64) (uint64, bool) {
	var total uint64
	for _, v := range values {
		var ok bool
		total, ok = AddUint64(total, v)
		if !ok {
			return 0, false
		}
	}
	return total, true
}
