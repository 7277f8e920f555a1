// Package logging builds the logrus logger shared by the CLI, the API client
// and the store. Conversion code never logs.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a text logger writing to stderr.
// debug wins over quiet when both are set.
func New(debug, quiet bool) *logrus.Logger {
	return NewWithWriter(os.Stderr, debug, quiet)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, debug, quiet bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: !debug,
		PadLevelText:     true,
	})
	switch {
	case debug:
		l.SetLevel(logrus.DebugLevel)
	case quiet:
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.WarnLevel)
	}
	return l
}

// Discard returns a logger that drops everything, for tests and library use.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}
