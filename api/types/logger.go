package types

import (
	"io"
	"log"
	"os"
)

// Logger is the printf-style sink every component logs through. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...interface{})
}

// DefaultLogger writes timestamped lines to stdout.
func DefaultLogger() *log.Logger {
	return NewFileLogger(os.Stdout)
}

// NewFileLogger writes timestamped lines to w, typically an opened log file.
func NewFileLogger(w io.Writer) *log.Logger {
	return log.New(w, "", log.LstdFlags)
}

// NewLogger returns custom, or the default logger when custom is nil.
func NewLogger(custom Logger) Logger {
	if custom == nil {
		return DefaultLogger()
	}
	return custom
}

type discardLogger struct{}

func (discardLogger) Printf(string, ...interface{}) {}

// DiscardLogger returns a Logger that writes nowhere.
func DiscardLogger() Logger {
	return discardLogger{}
}
