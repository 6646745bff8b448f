package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Min returns the smaller of a and b.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// CeilDiv returns ceil(n / d) for positive integers. Used to size compute
// dispatches from an element count and a work-group size.
func CeilDiv[T constraints.Integer](n, d T) T {
	return (n + d - 1) / d
}
