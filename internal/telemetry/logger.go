package telemetry

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	clog "github.com/charmbracelet/log"
)

// Logger writes structured events. Fields are emitted in key order so the
// output is stable.
type Logger struct {
	l *clog.Logger
	c io.Closer
}

// NewLogger logs to path, or to stderr when path is empty. format is "json",
// "logfmt" or "text".
func NewLogger(path, format string, debug bool) (*Logger, error) {
	var (
		w io.Writer = os.Stderr
		c io.Closer
	)
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		w, c = f, f
	}
	formatter, err := parseFormat(format)
	if err != nil {
		if c != nil {
			_ = c.Close()
		}
		return nil, err
	}
	return newLogger(w, c, formatter, debug), nil
}

// NewWriterLogger logs to w. It is used by tests and by callers that own
// the writer.
func NewWriterLogger(w io.Writer, format string) (*Logger, error) {
	formatter, err := parseFormat(format)
	if err != nil {
		return nil, err
	}
	return newLogger(w, nil, formatter, false), nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return newLogger(io.Discard, nil, clog.TextFormatter, false)
}

func newLogger(w io.Writer, c io.Closer, formatter clog.Formatter, debug bool) *Logger {
	level := clog.InfoLevel
	if debug {
		level = clog.DebugLevel
	}
	l := clog.NewWithOptions(w, clog.Options{
		Prefix:          "sqlbadlands",
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339Nano,
	})
	return &Logger{l: l, c: c}
}

func parseFormat(format string) (clog.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return clog.JSONFormatter, nil
	case "logfmt":
		return clog.LogfmtFormatter, nil
	case "text":
		return clog.TextFormatter, nil
	default:
		return 0, fmt.Errorf("unknown log format %q", format)
	}
}

func (l *Logger) Debug(msg string, fields map[string]any) {
	if l == nil {
		return
	}
	l.l.Debug(msg, keyvals(fields)...)
}

func (l *Logger) Info(msg string, fields map[string]any) {
	if l == nil {
		return
	}
	l.l.Info(msg, keyvals(fields)...)
}

func (l *Logger) Warn(msg string, fields map[string]any) {
	if l == nil {
		return
	}
	l.l.Warn(msg, keyvals(fields)...)
}

func (l *Logger) Error(msg string, fields map[string]any) {
	if l == nil {
		return
	}
	l.l.Error(msg, keyvals(fields)...)
}

// With returns a logger that adds fields to every event.
func (l *Logger) With(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{l: l.l.With(keyvals(fields)...), c: nil}
}

func (l *Logger) Close() error {
	if l == nil || l.c == nil {
		return nil
	}
	return l.c.Close()
}

func keyvals(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}
