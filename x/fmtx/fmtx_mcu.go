//go:build rp2040 || rp2350 || avr

package fmtx

import "io"

func Sprintf(format string, a ...any) string {
	return string(appendf(nil, format, a))
}

func Fprintf(w io.Writer, format string, a ...any) (int, error) {
	return w.Write(appendf(nil, format, a))
}
