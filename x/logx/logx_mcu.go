//go:build rp2040 || rp2350 || avr

package logx

import "growctl-go/x/fmtx"

func Debug(svc, msg string, kv ...any) {}
func Info(svc, msg string, kv ...any)  { emit("info", svc, msg, kv) }
func Warn(svc, msg string, kv ...any)  { emit("warn", svc, msg, kv) }
func Error(svc, msg string, kv ...any) { emit("error", svc, msg, kv) }

// emit prints one line: [svc] level msg k=v ...
func emit(level, svc, msg string, kv []any) {
	line := "[" + svc + "] " + level + " " + msg
	for i := 0; i < len(kv); i += 2 {
		if i+1 == len(kv) {
			line += fmtx.Sprintf(" %v", kv[i])
			break
		}
		line += fmtx.Sprintf(" %v=%v", kv[i], kv[i+1])
	}
	println(line)
}
