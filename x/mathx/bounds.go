package mathx

import "golang.org/x/exp/constraints"

// Clamp pins v to the closed range lo..hi. lo must not exceed hi.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

// Between reports whether lo <= v <= hi.
func Between[T constraints.Ordered](v, lo, hi T) bool {
	return lo <= v && v <= hi
}

func Abs[T constraints.Signed](x T) T {
	if x < 0 {
		return -x
	}
	return x
}
