// Package logging provides the small logger seam used across listend.
// Call sites depend on the Logger interface, not on charmbracelet/log
// directly, so tests can inject a no-op logger.
package logging

import (
	"os"

	charm "github.com/charmbracelet/log"
)

type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOp discards everything; used by tests and by packages that accept a
// nil logger.
type NoOp struct{}

func (NoOp) Debug(string, ...interface{}) {}
func (NoOp) Info(string, ...interface{})  {}
func (NoOp) Warn(string, ...interface{})  {}
func (NoOp) Error(string, ...interface{}) {}

// charmLogger adapts *charm.Logger to the Logger interface.
type charmLogger struct {
	l *charm.Logger
}

func (c charmLogger) Debug(msg string, args ...interface{}) { c.l.Debug(msg, args...) }
func (c charmLogger) Info(msg string, args ...interface{})  { c.l.Info(msg, args...) }
func (c charmLogger) Warn(msg string, args ...interface{})  { c.l.Warn(msg, args...) }
func (c charmLogger) Error(msg string, args ...interface{}) { c.l.Error(msg, args...) }

// New builds the daemon's default logger: text formatted, timestamped,
// level read from LISTEN_LOG_LEVEL (debug|info|warn|error, default info).
func New(levelName string) Logger {
	l := charm.NewWithOptions(os.Stderr, charm.Options{
		ReportTimestamp: true,
		Prefix:          "listend",
	})
	l.SetLevel(parseLevel(levelName))
	return charmLogger{l: l}
}

func parseLevel(name string) charm.Level {
	switch name {
	case "debug":
		return charm.DebugLevel
	case "warn":
		return charm.WarnLevel
	case "error":
		return charm.ErrorLevel
	default:
		return charm.InfoLevel
	}
}
