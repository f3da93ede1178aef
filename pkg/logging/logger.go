package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger wraps the charmbracelet logger so callers depend on this package
// rather than the backend directly.
type Logger struct {
	*log.Logger
}

// Options configures New.
type Options struct {
	// Debug enables debug level output, caller reporting and timestamps.
	Debug  bool
	Prefix string
}

// New builds a logger writing to w. Debug lines are dropped unless
// opts.Debug is set.
func New(w io.Writer, opts Options) *Logger {
	if w == nil {
		w = os.Stderr
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "filepicker"
	}

	if !opts.Debug {
		base := log.NewWithOptions(w, log.Options{Prefix: prefix})
		base.SetLevel(log.InfoLevel)
		return &Logger{Logger: base}
	}

	base := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	base.SetLevel(log.DebugLevel)
	return &Logger{Logger: base}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	base := log.New(io.Discard)
	base.SetLevel(log.FatalLevel)
	return &Logger{Logger: base}
}

// With returns a child logger carrying keyvals on every line.
func (l *Logger) With(keyvals ...any) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{Logger: l.Logger.With(keyvals...)}
}

// DebugEnabled reports whether debug lines would be written.
func (l *Logger) DebugEnabled() bool {
	if l == nil || l.Logger == nil {
		return false
	}
	return l.GetLevel() <= log.DebugLevel
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil || l.Logger == nil {
		return Nop()
	}
	return l
}
