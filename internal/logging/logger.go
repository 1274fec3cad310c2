// Package logging provides the process-wide logger: a thin slog wrapper with
// a single-line text format and console, file and discard sinks. Call sites
// log key-value pairs, e.g. logger.Info("Turn complete", "session", id).
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// LogLevel represents the severity of a log message
type LogLevel int

// Log levels
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// ToSlogLevel converts our LogLevel to slog.Level
func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Logger is a thin wrapper around slog with a fixed line format.
type Logger struct {
	Logger *slog.Logger
	writer io.Writer
}

var defaultLogger *Logger

// Init installs the default logger.
func Init(logger *Logger) {
	defaultLogger = logger
}

// Get returns the default logger, falling back to console output when Init
// was never called.
func Get() *Logger {
	if defaultLogger == nil {
		defaultLogger = Console()
	}
	return defaultLogger
}

// lineHandler writes "TIME LEVEL [file:line] message [k=v, ...]" lines.
type lineHandler struct {
	level     slog.Level
	addSource bool
	w         io.Writer
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Format("2006-01-02 15:04:05Z07:00"))
	b.WriteByte(' ')
	b.WriteString(r.Level.String())

	if h.addSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC - 1})
		frame, _ := frames.Next()
		fmt.Fprintf(&b, " %s:%d", filepath.Base(frame.File), frame.Line)
	}

	b.WriteByte(' ')
	b.WriteString(r.Message)

	attrs := make([]string, 0, r.NumAttrs())
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != "" {
			attrs = append(attrs, attr.Key+"="+attr.Value.String())
		}
		return true
	})
	if len(attrs) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(attrs, ", "))
		b.WriteByte(']')
	}
	b.WriteByte('\n')

	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *lineHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *lineHandler) WithGroup(string) slog.Handler { return h }

// Console creates a logger that writes info and above to stderr.
func Console() *Logger {
	return newLogger(os.Stderr, slog.LevelInfo)
}

// File creates a logger writing debug and above to the named file. When the
// file cannot be opened it falls back to stderr rather than failing.
func File(filename string, append bool) *Logger {
	flag := os.O_CREATE | os.O_WRONLY
	if append {
		flag |= os.O_APPEND
	} else {
		flag |= os.O_TRUNC
	}
	file, err := os.OpenFile(filename, flag, 0o666)
	if err != nil {
		return newLogger(os.Stderr, slog.LevelInfo)
	}
	return newLogger(file, slog.LevelDebug)
}

// DevNull creates a logger that discards all output.
func DevNull() *Logger {
	return newLogger(io.Discard, slog.LevelError+1)
}

func newLogger(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(&lineHandler{level: level, addSource: true, w: w}),
		writer: w,
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...any) {
	l.Logger.Info(msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.Logger.Error(msg, args...)
}

// Close closes the underlying sink when it is closable.
func (l *Logger) Close() error {
	if closer, ok := l.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
