// Package logging builds the zerolog loggers shared by the commands and
// services. Diagnostics go to stderr so command output stays clean.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates a console logger on stderr at the given level. Unknown
// level names fall back to warn.
func New(level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}
	return zerolog.New(output).Level(parseLevel(level)).With().Timestamp().Logger()
}

// NewWithWriter creates a logger with a custom writer and plain JSON
// output, mainly for tests.
func NewWithWriter(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.WarnLevel
	}
	return lvl
}
