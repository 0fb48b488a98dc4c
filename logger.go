package keypivot

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with keypivot-specific context.
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
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithPattern adds the table's pattern to the logger.
func (l *Logger) WithPattern(pattern string) *Logger {
	return &Logger{
		Logger: l.Logger.With("pattern", pattern),
	}
}

// LogScan logs a completed scan.
func (l *Logger) LogScan(ctx context.Context, stats ScanStats, err error) {
	if err != nil {
		l.ErrorContext(ctx, "scan failed",
			"keys_scanned", stats.KeysScanned,
			"keys_skipped", stats.KeysSkipped,
			"rows_returned", stats.RowsReturned,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "scan completed",
			"keys_scanned", stats.KeysScanned,
			"keys_skipped", stats.KeysSkipped,
			"rows_returned", stats.RowsReturned,
		)
	}
}

// LogWrite logs a write operation (insert, update, delete).
func (l *Logger) LogWrite(ctx context.Context, op string, outcome WriteOutcome, err error) {
	if err != nil {
		l.ErrorContext(ctx, "write failed",
			"op", op,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "write completed",
			"op", op,
			"keys_put", outcome.KeysPut,
			"keys_deleted", outcome.KeysDeleted,
		)
	}
}
