// Package logging provides the levelled key/value logger used across the
// pipeline. Output goes to stderr through the standard log package.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// LevelEnv is the environment variable that switches debug output on.
const LevelEnv = "HIKING_SIGNS_LOG_LEVEL"

var debugEnabled atomic.Bool

func init() {
	debugEnabled.Store(strings.EqualFold(os.Getenv(LevelEnv), "debug"))
}

// SetDebug toggles debug output for every logger.
func SetDebug(on bool) {
	debugEnabled.Store(on)
}

// Logger writes "[prefix] [LEVEL] msg k=v ..." lines.
type Logger struct {
	prefix string
	logger *log.Logger
}

// New creates a logger writing to stderr with the given component prefix.
func New(prefix string) *Logger {
	return NewWithWriter(prefix, os.Stderr)
}

// NewWithWriter creates a logger writing to w. Tests use it to capture output.
func NewWithWriter(prefix string, w io.Writer) *Logger {
	return &Logger{
		prefix: prefix,
		logger: log.New(w, fmt.Sprintf("[%s] ", prefix), log.Ldate|log.Ltime),
	}
}

// With returns a logger whose prefix is extended with sub, e.g. "pipeline/fusion".
func (l *Logger) With(sub string) *Logger {
	return &Logger{
		prefix: l.prefix + "/" + sub,
		logger: log.New(l.logger.Writer(), fmt.Sprintf("[%s/%s] ", l.prefix, sub), l.logger.Flags()),
	}
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithKV("INFO", msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithKV("WARN", msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logWithKV("ERROR", msg, keysAndValues...)
}

// Debug logs a debug message with key-value pairs. Suppressed unless debug is on.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	l.logWithKV("DEBUG", msg, keysAndValues...)
}

func (l *Logger) logWithKV(level, msg string, keysAndValues ...interface{}) {
	var b strings.Builder
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	l.logger.Printf("[%s] %s%s", level, msg, b.String())
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriter("discard", io.Discard)
}
