package cluster

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with clustering-specific helpers so operations
// log with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, a text handler to stderr at Info level is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// LogClusterPass logs a completed clustering pass.
func (l *Logger) LogClusterPass(resolution float64, features, clusters int) {
	l.Debug("cluster pass completed",
		"resolution", resolution,
		"features", features,
		"clusters", clusters,
	)
}

// LogRefresh logs a full refresh.
func (l *Logger) LogRefresh() {
	l.Debug("refresh completed")
}

// LogLoad logs a base-store load request.
func (l *Logger) LogLoad(ctx context.Context, resolution float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"resolution", resolution,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "load completed",
			"resolution", resolution,
		)
	}
}
