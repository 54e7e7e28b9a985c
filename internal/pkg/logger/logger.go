// Package logger provides structured logging built on slog.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey struct{}

// RequestIDKey carries the request identifier through a context.
var RequestIDKey = contextKey{}

// Logger wraps slog.Logger with search-specific context helpers.
type Logger struct {
	*slog.Logger
}

// New creates a logger writing to stdout. Level is one of debug, info,
// warn, error; format is "json" or "text".
func New(level, format string) *Logger {
	return NewWriter(os.Stdout, level, format)
}

// NewWriter creates a logger writing to w.
func NewWriter(w io.Writer, level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// Default returns an info-level text logger.
func Default() *Logger {
	return New("info", "text")
}

// WithContext attaches the request ID from ctx, when present.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok && reqID != "" {
		return &Logger{Logger: l.With("request_id", reqID)}
	}
	return l
}

// WithCorpus attaches a corpus name.
func (l *Logger) WithCorpus(corpus string) *Logger {
	return &Logger{Logger: l.With("corpus", corpus)}
}

// WithError attaches an error message.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{Logger: l.With("error", err.Error())}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
