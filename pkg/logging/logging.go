package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// LevelFor maps the CLIs' -v count onto a zerolog level.
func LevelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity >= 2:
		return zerolog.TraceLevel
	case verbosity == 1:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

func New(writer io.Writer, verbosity int) zerolog.Logger {
	return zerolog.New(writer).
		Level(LevelFor(verbosity)).
		With().
		Timestamp().
		Logger()
}

func NewConsoleLogger(verbosity int) zerolog.Logger {
	return New(zerolog.ConsoleWriter{Out: os.Stderr}, verbosity)
}
