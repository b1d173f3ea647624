// Package logging wraps log/slog with the field names the search host uses.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with search-specific helpers.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to w. format is "text" or "json".
func New(w io.Writer, level slog.Level, format string) (*Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return &Logger{Logger: slog.New(h)}, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))}
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// WithBackend tags the logger with a backend name.
func (l *Logger) WithBackend(name string) *Logger {
	return &Logger{Logger: l.Logger.With("backend", name)}
}

// WithNetwork tags the logger with a network name.
func (l *Logger) WithNetwork(name string) *Logger {
	return &Logger{Logger: l.Logger.With("network", name)}
}

// LogFallback records that a backend could not serve a request.
func (l *Logger) LogFallback(ctx context.Context, from, to string, err error) {
	l.WarnContext(ctx, "backend unavailable, falling back",
		"from", from,
		"to", to,
		"error", err,
	)
}

// LogDispatch records one completed dispatch.
func (l *Logger) LogDispatch(ctx context.Context, offset uint64, keys uint64, elapsed time.Duration) {
	l.DebugContext(ctx, "dispatch completed",
		"offset", offset,
		"keys", keys,
		"elapsed", elapsed,
	)
}

// LogMatch records a verified match.
func (l *Logger) LogMatch(ctx context.Context, address string, lane uint32, attempts uint64) {
	l.InfoContext(ctx, "match found",
		"address", address,
		"lane", lane,
		"attempts", attempts,
	)
}
