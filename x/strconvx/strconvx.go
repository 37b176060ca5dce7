// Package strconvx is the integer subset of strconv the firmware uses.
// Host builds call strconv; MCU builds use the routines here and keep
// strconv's float tables out of the image.
package strconvx

import "growctl-go/errcode"

const digits = "0123456789abcdefghijklmnopqrstuvwxyz"

func formatUint(u uint64, base int) string {
	if base < 2 || base > len(digits) {
		base = 10
	}
	var buf [64]byte
	i := len(buf)
	b := uint64(base)
	for {
		i--
		buf[i] = digits[u%b]
		u /= b
		if u == 0 {
			return string(buf[i:])
		}
	}
}

func formatInt(i int64, base int) string {
	if i < 0 {
		return "-" + formatUint(uint64(-i), base)
	}
	return formatUint(uint64(i), base)
}

// atoi parses an optionally signed decimal into the platform int, which is
// 16 bits wide on AVR.
func atoi(s string) (int, error) {
	in := s
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return 0, syntaxErr(in)
	}
	limit := ^uint(0) >> 1
	if neg {
		limit++
	}
	var n uint
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, syntaxErr(in)
		}
		d := uint(c - '0')
		if n > (limit-d)/10 {
			return 0, &errcode.E{C: errcode.InvalidParams, Op: "strconvx.Atoi", Msg: "out of range: " + in}
		}
		n = n*10 + d
	}
	if neg {
		return -int(n), nil
	}
	return int(n), nil
}

func syntaxErr(s string) error {
	return &errcode.E{C: errcode.InvalidParams, Op: "strconvx.Atoi", Msg: "not a number: " + s}
}
