// Package logging builds the application's zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates a logger writing to stderr. level is a zerolog level name
// ("debug", "info", ...); unknown names fall back to info. format is
// "console" for human-readable output or "json" for structured output.
func New(level, format string) zerolog.Logger {
	return NewWithOutput(level, format, os.Stderr)
}

// NewWithOutput is New with an explicit destination, for tests.
func NewWithOutput(level, format string, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
