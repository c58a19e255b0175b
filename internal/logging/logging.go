// Package logging builds the structured logger shared by the
// blockchain store, the UTXO index, and the network node. A single
// place to configure level and output so every component logs the
// same way.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the structured logger every package logs through.
type Logger = log.Logger

// New builds a logger writing to stderr at the given level ("debug",
// "info", "warn", "error"). Unknown levels fall back to "info".
func New(level string) (*Logger, error) {
	lg := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	lg.SetLevel(parseLevel(level))
	return lg, nil
}

// Noop returns a logger that discards everything, for tests that don't
// want node output on stderr.
func Noop() *Logger {
	return log.New(io.Discard)
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// SugaredCloser pairs a ready-to-use logger with the cleanup that
// flushes it, so CLI commands can defer one value instead of juggling
// the underlying logger and its sink.
type SugaredCloser struct {
	Logger *Logger
	Close  func() error
}
