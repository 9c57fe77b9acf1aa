// Package logger provides the process-wide structured logger for recipescale.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	current *slog.Logger
	mu      sync.RWMutex
)

func init() {
	current = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Options configures the logger.
type Options struct {
	Debug  bool         // Enable debug level logging
	Quiet  bool         // Only show errors
	JSON   bool         // Emit JSON records instead of text
	Output io.Writer    // Destination (default: stderr)
	Logger *slog.Logger // Use this logger as-is, ignoring the other fields
}

// Init replaces the process logger according to opts.
func Init(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	if opts.Logger != nil {
		current = opts.Logger
		return
	}

	level := slog.LevelInfo
	switch {
	case opts.Quiet:
		level = slog.LevelError
	case opts.Debug:
		level = slog.LevelDebug
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	current = slog.New(handler)
}

// SetLogger installs an application-provided slog.Logger.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

// Get returns the active logger.
func Get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { Get().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { Get().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { Get().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { Get().Error(msg, args...) }

// With returns a child logger carrying the given attributes.
func With(args ...any) *slog.Logger { return Get().With(args...) }

// DebugContext logs at debug level with ctx.
func DebugContext(ctx context.Context, msg string, args ...any) {
	Get().DebugContext(ctx, msg, args...)
}

// InfoContext logs at info level with ctx.
func InfoContext(ctx context.Context, msg string, args ...any) {
	Get().InfoContext(ctx, msg, args...)
}

// WarnContext logs at warn level with ctx.
func WarnContext(ctx context.Context, msg string, args ...any) {
	Get().WarnContext(ctx, msg, args...)
}

// ErrorContext logs at error level with ctx.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	Get().ErrorContext(ctx, msg, args...)
}
