package mathx

import "golang.org/x/exp/constraints"

// Mod returns a modulo m in [0, m). m must be positive.
func Mod[T constraints.Signed](a, m T) T {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
