//go:build !(rp2040 || rp2350 || avr)

package strconvx

import "strconv"

func Itoa(i int) string                    { return strconv.Itoa(i) }
func Atoi(s string) (int, error)           { return strconv.Atoi(s) }
func FormatInt(i int64, base int) string   { return strconv.FormatInt(i, base) }
func FormatUint(u uint64, base int) string { return strconv.FormatUint(u, base) }
