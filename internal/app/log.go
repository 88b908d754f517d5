package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// logHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<op>\t<message>\t<key=value ...>
//
// Every record is appended to the repository log file; records at or
// above the terminal threshold are echoed to stderr as well.
type logHandler struct {
	file  io.Writer
	term  io.Writer
	level slog.Level
	op    string
	attrs []slog.Attr
}

func (h *logHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *logHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")

	fmt.Fprintf(&b, "%s\t%s\t%s\t%s", ts, r.Level.String(), h.op, r.Message)

	// Write pre-set attrs.
	for _, a := range h.attrs {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
	}

	// Write per-record attrs.
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')

	line := b.String()
	if h.file != nil {
		if _, err := io.WriteString(h.file, line); err != nil {
			return err
		}
	}
	if h.term != nil && r.Level >= h.level {
		if _, err := io.WriteString(h.term, line); err != nil {
			return err
		}
	}
	return nil
}

func (h *logHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &logHandler{
		file:  h.file,
		term:  h.term,
		level: h.level,
		op:    h.op,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *logHandler) WithGroup(string) slog.Handler { return h }

// newLogger creates the repository logger. Every record is appended to the
// log file at logPath; records at or above term are echoed to stderr. op
// identifies the CLI command being run (e.g. "archive", "restore") and tags
// each line. It returns the slog.Logger, the open log file (for cleanup),
// and any error.
func newLogger(logPath, op string, term slog.Level) (*slog.Logger, *os.File, error) {
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := &logHandler{file: f, term: os.Stderr, level: term, op: op}
	return slog.New(handler), f, nil
}

// ParseLevel maps a configuration level name to a slog.Level. Unknown
// names fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

// slogAdapter wraps *slog.Logger to satisfy the frost.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
