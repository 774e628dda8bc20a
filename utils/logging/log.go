// Package logging wraps logrus into the small ctx.Log-shaped logger the
// teacher's packages call throughout (Debug/Verbo/Warn/Error/AssertTrue),
// e.g. topological.go's ta.ctx.Log.Debug(...) and voter.go's
// v.t.Ctx.Log.Warn(...). logrus itself is the teacher's own choice,
// observed in dir/main/burn_funds.go; log rotation is layered on top with
// github.com/jrick/logrotate, carried in from the mstroehle-hcd /
// degeri-dcrlnd examples since the teacher's own retrieved files don't
// show a rotation story but every long-running node in the pack has one.
package logging

import (
	"io"
	"os"

	"github.com/jrick/logrotate/rotator"
	"github.com/sirupsen/logrus"
)

// Logger is the logging surface every component in this module takes a
// reference to, mirroring the teacher's ctx.Log field.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger builds a Logger that writes to stderr and, if logPath is
// non-empty, additionally rotates into logPath via logrotate.
func NewLogger(component string, level logrus.Level, logPath string) (*Logger, error) {
	base := logrus.New()
	base.SetLevel(level)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var out io.Writer = os.Stderr
	if logPath != "" {
		r, err := rotator.New(logPath, 10*1024, false, 3)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stderr, r)
	}
	base.SetOutput(out)

	return &Logger{entry: base.WithField("component", component)}, nil
}

// Verbo logs at the most chatty level (mapped onto logrus Trace).
func (l *Logger) Verbo(format string, args ...interface{}) { l.entry.Tracef(format, args...) }

// Debug logs a debug-level message.
func (l *Logger) Debug(format string, args ...interface{}) { l.entry.Debugf(format, args...) }

// Info logs an info-level message.
func (l *Logger) Info(format string, args ...interface{}) { l.entry.Infof(format, args...) }

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...interface{}) { l.entry.Warnf(format, args...) }

// Error logs an operator-actionable error (spec.md §7's "surfaced" errors:
// deep-fork, integrity, repeated handshake mismatches).
func (l *Logger) Error(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// AssertTrue panics with msg if cond is false. Used only for invariants
// that indicate a programming error, never on a request path (spec.md §7:
// "no panics on the request path").
func (l *Logger) AssertTrue(cond bool, msg string, args ...interface{}) {
	if !cond {
		l.entry.Panicf(msg, args...)
	}
}

// With returns a Logger scoped to an additional field, e.g. a peer or txid.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}
