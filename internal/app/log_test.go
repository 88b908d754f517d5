package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		op      string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			op:      "archive",
			level:   slog.LevelInfo,
			message: "archived",
			want:    "2024-06-15T14:30:45Z\tINFO\tarchive\tarchived\n",
		},
		{
			name:    "debug level",
			op:      "restore",
			level:   slog.LevelDebug,
			message: "decompressing artifact",
			want:    "2024-06-15T14:30:45Z\tDEBUG\trestore\tdecompressing artifact\n",
		},
		{
			name:    "with record attrs",
			op:      "archive",
			level:   slog.LevelInfo,
			message: "archived",
			attrs:   []slog.Attr{slog.String("path", "/data/sales.csv"), slog.Int("version", 2)},
			want:    "2024-06-15T14:30:45Z\tINFO\tarchive\tarchived\tpath=/data/sales.csv\tversion=2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &logHandler{file: &buf, op: tt.op}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestLogHandler_TerminalThreshold(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	var file, term bytes.Buffer
	h := &logHandler{file: &file, term: &term, level: slog.LevelInfo, op: "archive"}

	debug := slog.NewRecord(ts, slog.LevelDebug, "writing chunk", 0)
	if err := h.Handle(context.Background(), debug); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	info := slog.NewRecord(ts, slog.LevelInfo, "archived", 0)
	if err := h.Handle(context.Background(), info); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if got := strings.Count(file.String(), "\n"); got != 2 {
		t.Errorf("log file lines = %d, want 2 (file records everything)", got)
	}
	if strings.Contains(term.String(), "writing chunk") {
		t.Errorf("debug record leaked to the terminal: %q", term.String())
	}
	if !strings.Contains(term.String(), "archived") {
		t.Errorf("info record missing from the terminal: %q", term.String())
	}
}

func TestLogHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &logHandler{file: &buf, op: "archive"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "codec")}).(*logHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "converted", 0)
	r.AddAttrs(slog.Int64("rows", 42))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=codec") {
		t.Errorf("expected pre-set attr component=codec, got: %q", got)
	}
	if !strings.Contains(got, "rows=42") {
		t.Errorf("expected record attr rows=42, got: %q", got)
	}
}

func TestLogHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := &logHandler{file: &buf, op: "archive", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*logHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "frostbyte.log")

	logger, f, err := newLogger(logPath, "archive", slog.LevelError)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	if logger == nil {
		t.Fatal("newLogger() returned nil logger")
	}

	logger.Info("archived", "version", 1)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "archived\tversion=1") {
		t.Errorf("log file missing record, got: %q", string(data))
	}
}
