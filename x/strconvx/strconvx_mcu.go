//go:build rp2040 || rp2350 || avr

package strconvx

func Itoa(i int) string                    { return formatInt(int64(i), 10) }
func Atoi(s string) (int, error)           { return atoi(s) }
func FormatInt(i int64, base int) string   { return formatInt(i, base) }
func FormatUint(u uint64, base int) string { return formatUint(u, base) }
