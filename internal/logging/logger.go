// Package logging provides the CLI logger and the redaction helpers that
// keep secret values out of every output path.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Logger writes user-facing diagnostics to stderr. Stdout is reserved for
// command output (change summaries, dry-run reports).
type Logger struct {
	out     io.Writer
	debug   bool
	noColor bool
}

// New creates a logger. debug enables Debug output, noColor strips ANSI
// escapes for non-terminal consumers.
func New(debug, noColor bool) *Logger {
	return NewWithWriter(os.Stderr, debug, noColor)
}

// NewWithWriter creates a logger writing to w instead of stderr.
func NewWithWriter(w io.Writer, debug, noColor bool) *Logger {
	return &Logger{out: w, debug: debug, noColor: noColor}
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit("\033[32m✓\033[0m", "✓", format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit("\033[33m⚠\033[0m", "⚠", format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit("\033[31m✗\033[0m", "✗", format, args...)
}

// Debug logs a message only when debug mode is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.emit("\033[36m[debug]\033[0m", "[debug]", format, args...)
}

func (l *Logger) emit(colored, plain, format string, args ...interface{}) {
	prefix := colored
	if l.noColor {
		prefix = plain
	}
	fmt.Fprintf(l.out, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

// Secret wraps a sensitive string so that any fmt verb renders it redacted.
// Use it whenever a secret value could reach a format string.
type Secret string

// String implements fmt.Stringer, always returning the redacted marker.
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer so %#v cannot leak the value either.
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces every occurrence of the given secret values in s with a
// redaction marker. Values shorter than four characters are skipped: they
// are too likely to collide with ordinary text.
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if len(secret) > 3 {
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}
