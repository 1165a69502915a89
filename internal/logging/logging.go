package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level controls which messages a Logger writes.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger is a simple leveled logger that writes to the console. Messages take
// trailing key/value pairs: logger.Info("saved", "id", id).
type Logger struct {
	*log.Logger
	level Level
}

// NewLogger creates a new Logger writing to stdout at debug level.
func NewLogger() *Logger {
	return New(os.Stdout, LevelDebug)
}

// New creates a Logger writing to w that drops messages below level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{
		Logger: log.New(w, "", log.LstdFlags),
		level:  level,
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level. Anything
// else is LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	l.write(LevelDebug, "DEBUG", msg, args)
}

// Info logs an informational message.
func (l *Logger) Info(msg string, args ...any) {
	l.write(LevelInfo, "INFO", msg, args)
}

// Warn logs a warning.
func (l *Logger) Warn(msg string, args ...any) {
	l.write(LevelWarn, "WARN", msg, args)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	l.write(LevelError, "ERROR", msg, args)
}

func (l *Logger) write(level Level, tag, msg string, args []any) {
	if level < l.level {
		return
	}
	var b strings.Builder
	b.WriteString(tag)
	b.WriteString(": ")
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	l.Print(b.String())
}
