// Package floatutils provides utilities for working with floats
package floatutils

import "math"

// AllFinite returns whether none of the values is NaN or infinite
func AllFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
