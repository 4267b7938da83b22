package quarry

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with quarry-specific context.
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
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithField adds a field name to the logger.
func (l *Logger) WithField(field string) *Logger {
	return &Logger{
		Logger: l.Logger.With("field", field),
	}
}

// WithK adds a k (hit count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithGeneration adds a commit point generation to the logger.
func (l *Logger) WithGeneration(generation uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("generation", generation),
	}
}

// LogAdd logs a document add.
func (l *Logger) LogAdd(ctx context.Context, fields int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"fields", fields,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"fields", fields,
		)
	}
}

// LogDelete logs a delete-by-term.
func (l *Logger) LogDelete(ctx context.Context, field, term string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"field", field,
			"term", term,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"field", field,
			"term", term,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, query string, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"query", query,
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"query", query,
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogCommit logs a commit.
func (l *Logger) LogCommit(ctx context.Context, generation uint64, docs, deletes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "commit failed",
			"docs", docs,
			"deletes", deletes,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "commit published",
			"generation", generation,
			"docs", docs,
			"deletes", deletes,
		)
	}
}
