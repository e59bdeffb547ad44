package tablespace

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with workspace-specific context.
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
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithWorkspace adds the workspace name to the logger.
func (l *Logger) WithWorkspace(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("workspace", name),
	}
}

// WithResource adds a resource name to the logger.
func (l *Logger) WithResource(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("resource", name),
	}
}

// WithMode adds the scheduling mode to the logger.
func (l *Logger) WithMode(mode Mode) *Logger {
	return &Logger{
		Logger: l.Logger.With("mode", mode.String()),
	}
}

// LogLoad logs a table load.
func (l *Logger) LogLoad(ctx context.Context, resource, filename string, bytes int64, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"resource", resource,
			"filename", filename,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "load completed",
		"resource", resource,
		"filename", filename,
		"bytes", bytes,
		"duration", d,
	)
}

// LogExport logs a table export.
func (l *Logger) LogExport(ctx context.Context, resource, filename string, bytes int64, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "export failed",
			"resource", resource,
			"filename", filename,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "export completed",
		"resource", resource,
		"filename", filename,
		"bytes", bytes,
		"duration", d,
	)
}

// LogSkip logs an operation that was skipped instead of failing the batch.
func (l *Logger) LogSkip(ctx context.Context, resource, reason string) {
	l.WarnContext(ctx, "skipped",
		"resource", resource,
		"reason", reason,
	)
}

// LogFault logs a task failure that faulted the workspace.
func (l *Logger) LogFault(ctx context.Context, task string, err error) {
	l.ErrorContext(ctx, "task failed",
		"task", task,
		"error", err,
	)
}

// LogCancel logs a cancellation sweep.
func (l *Logger) LogCancel(ctx context.Context, cancelled int) {
	if cancelled == 0 {
		return
	}
	l.WarnContext(ctx, "cancelled outstanding work",
		"count", cancelled,
	)
}

// LogRemove logs the removal of a resource.
func (l *Logger) LogRemove(ctx context.Context, resource string, err error) {
	if err != nil {
		l.WarnContext(ctx, "remove of unknown resource",
			"resource", resource,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "resource removed",
		"resource", resource,
	)
}
