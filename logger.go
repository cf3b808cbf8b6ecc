package ffshm

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with ffshm-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithSegment adds segment name and backend fields to the logger.
func (l *Logger) WithSegment(name string, backend Backend) *Logger {
	return &Logger{
		Logger: l.Logger.With("segment", name, "backend", backend.String()),
	}
}

// WithVariable adds a variable name field to the logger.
func (l *Logger) WithVariable(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("variable", name),
	}
}

// LogLifecycle logs a segment lifecycle transition (create, attach, detach, destroy).
func (l *Logger) LogLifecycle(ctx context.Context, event string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, event+" failed",
			"size", size,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, event,
			"size", size,
		)
	}
}

// LogWrite logs a variable write.
func (l *Logger) LogWrite(ctx context.Context, name string, kind Kind, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "write failed",
			"variable", name,
			"type", kind.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "write completed",
			"variable", name,
			"type", kind.String(),
			"size", size,
		)
	}
}

// LogRead logs a variable read.
func (l *Logger) LogRead(ctx context.Context, name string, kind Kind, err error) {
	if err != nil {
		l.ErrorContext(ctx, "read failed",
			"variable", name,
			"type", kind.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "read completed",
			"variable", name,
			"type", kind.String(),
		)
	}
}

// LogWait logs the end of a wait for a variable.
func (l *Logger) LogWait(ctx context.Context, name string, elapsed time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "wait ended without variable",
			"variable", name,
			"elapsed", elapsed,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "wait completed",
			"variable", name,
			"elapsed", elapsed,
		)
	}
}

// LogSnapshot logs a dump or restore.
func (l *Logger) LogSnapshot(ctx context.Context, op string, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"bytes", bytes,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, op+" completed",
			"bytes", bytes,
		)
	}
}
