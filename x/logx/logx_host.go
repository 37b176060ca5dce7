//go:build !(rp2040 || rp2350 || avr)

// Package logx gives services one logging call shape on host and MCU builds.
package logx

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

// SetDefault replaces the logger used by Info/Warn/Error/Debug.
func SetDefault(l *slog.Logger) { current.Store(l) }

// L returns the active logger.
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return slog.Default()
}

func Debug(svc, msg string, kv ...any) { L().Debug(msg, with(svc, kv)...) }
func Info(svc, msg string, kv ...any)  { L().Info(msg, with(svc, kv)...) }
func Warn(svc, msg string, kv ...any)  { L().Warn(msg, with(svc, kv)...) }
func Error(svc, msg string, kv ...any) { L().Error(msg, with(svc, kv)...) }

func with(svc string, kv []any) []any {
	return append([]any{"svc", svc}, kv...)
}

// Init builds a text logger writing to stdout and dir/name. When the file
// cannot be opened it falls back to stdout only. The returned closer is never nil.
func Init(dir, name string, level slog.Level) (*slog.Logger, io.Closer) {
	opts := &slog.HandlerOptions{Level: level}
	if dir == "" {
		l := slog.New(slog.NewTextHandler(os.Stdout, opts))
		SetDefault(l)
		return l, io.NopCloser(nil)
	}
	_ = os.MkdirAll(dir, 0o755)
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l := slog.New(slog.NewTextHandler(os.Stdout, opts))
		l.Error("failed to open log file; falling back to stdout only", "error", err)
		SetDefault(l)
		return l, io.NopCloser(nil)
	}
	l := slog.New(slog.NewTextHandler(io.MultiWriter(f, os.Stdout), opts))
	SetDefault(l)
	return l, f
}
