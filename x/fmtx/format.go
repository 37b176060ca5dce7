// Package fmtx is the slice of fmt the firmware formats with. Host builds
// call fmt. MCU builds use appendf, which knows %d %s %v and %% with an
// optional 0 flag and width.
package fmtx

import (
	"unicode/utf8"

	"growctl-go/x/strconvx"
)

func appendf(dst []byte, format string, args []any) []byte {
	ai := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			dst = append(dst, c)
			continue
		}
		i++
		if i < len(format) && format[i] == '%' {
			dst = append(dst, '%')
			continue
		}
		zero := false
		if i < len(format) && format[i] == '0' {
			zero = true
			i++
		}
		width := 0
		for ; i < len(format) && '0' <= format[i] && format[i] <= '9'; i++ {
			width = width*10 + int(format[i]-'0')
		}
		if i >= len(format) {
			return append(dst, "%!(NOVERB)"...)
		}
		if ai >= len(args) {
			dst = append(dst, "%!"...)
			dst = append(dst, format[i])
			dst = append(dst, "(MISSING)"...)
			continue
		}
		arg := args[ai]
		ai++
		switch format[i] {
		case 'd':
			s, ok := integer(arg)
			if !ok {
				s = "?"
			}
			dst = pad(dst, s, width, zero)
		case 's', 'v':
			dst = pad(dst, value(arg), width, false)
		default:
			dst = append(dst, '%', format[i])
		}
	}
	return dst
}

// pad right-aligns s in width runes. Zero fill goes after a minus sign.
func pad(dst []byte, s string, width int, zero bool) []byte {
	n := width - utf8.RuneCountInString(s)
	if n <= 0 {
		return append(dst, s...)
	}
	fill := byte(' ')
	if zero {
		fill = '0'
		if s[0] == '-' {
			dst = append(dst, '-')
			s = s[1:]
		}
	}
	for ; n > 0; n-- {
		dst = append(dst, fill)
	}
	return append(dst, s...)
}

func integer(v any) (string, bool) {
	switch x := v.(type) {
	case int:
		return strconvx.FormatInt(int64(x), 10), true
	case int8:
		return strconvx.FormatInt(int64(x), 10), true
	case int16:
		return strconvx.FormatInt(int64(x), 10), true
	case int32:
		return strconvx.FormatInt(int64(x), 10), true
	case int64:
		return strconvx.FormatInt(x, 10), true
	case uint:
		return strconvx.FormatUint(uint64(x), 10), true
	case uint8:
		return strconvx.FormatUint(uint64(x), 10), true
	case uint16:
		return strconvx.FormatUint(uint64(x), 10), true
	case uint32:
		return strconvx.FormatUint(uint64(x), 10), true
	case uint64:
		return strconvx.FormatUint(x, 10), true
	}
	return "", false
}

func value(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	case interface{ String() string }:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	case nil:
		return "<nil>"
	}
	if s, ok := integer(v); ok {
		return s
	}
	return "?"
}
