// Package logger provides the structured logging facade used across the
// Manager. It is a thin wrapper over log/slog so components depend on a
// narrow interface instead of a concrete handler.
package logger

import (
	"io"
	"log/slog"
	"time"
)

// LogLevel selects the minimum severity a logger emits.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Field is a typed key/value attribute attached to a log record.
type Field = slog.Attr

// String returns a string field.
func String(key, value string) Field { return slog.String(key, value) }

// Int returns an int field.
func Int(key string, value int) Field { return slog.Int(key, value) }

// Int64 returns an int64 field.
func Int64(key string, value int64) Field { return slog.Int64(key, value) }

// Uint64 returns a uint64 field.
func Uint64(key string, value uint64) Field { return slog.Uint64(key, value) }

// Float64 returns a float64 field.
func Float64(key string, value float64) Field { return slog.Float64(key, value) }

// Bool returns a bool field.
func Bool(key string, value bool) Field { return slog.Bool(key, value) }

// Duration returns a duration field.
func Duration(key string, value time.Duration) Field { return slog.Duration(key, value) }

// Any returns a field holding an arbitrary value.
func Any(key string, value any) Field { return slog.Any(key, value) }

// Error returns a field holding an error message under the "error" key.
// A nil error logs as an empty string.
func Error(err error) Field {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Logger is the logging interface injected into Manager components.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger creates a Logger writing text records to w at the given
// level. Base fields, if any, are attached to every record.
func NewSlogLogger(w io.Writer, level LogLevel, base []Field) Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level.slogLevel()})
	l := slog.New(h)
	if len(base) > 0 {
		args := make([]any, 0, len(base))
		for _, f := range base {
			args = append(args, f)
		}
		l = l.With(args...)
	}
	return &slogLogger{l: l}
}

func fieldsToArgs(fields []Field) []any {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	return args
}

func (s *slogLogger) Debug(msg string, fields ...Field) { s.l.Debug(msg, fieldsToArgs(fields)...) }
func (s *slogLogger) Info(msg string, fields ...Field)  { s.l.Info(msg, fieldsToArgs(fields)...) }
func (s *slogLogger) Warn(msg string, fields ...Field)  { s.l.Warn(msg, fieldsToArgs(fields)...) }
func (s *slogLogger) Error(msg string, fields ...Field) { s.l.Error(msg, fieldsToArgs(fields)...) }

func (s *slogLogger) With(fields ...Field) Logger {
	return &slogLogger{l: s.l.With(fieldsToArgs(fields)...)}
}
