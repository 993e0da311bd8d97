// Package logging builds the process logger. Engines receive it explicitly;
// nothing in this module reaches for a global logger.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New constructs a zerolog logger at the given level, console-formatted
// unless jsonOut is set.
func New(level string, jsonOut bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var w io.Writer = os.Stderr
	if !jsonOut {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
