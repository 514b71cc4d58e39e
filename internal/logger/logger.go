package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. format "json" writes JSON lines,
// anything else writes the human readable console format.
func Init(level, format string) zerolog.Logger {
	return InitWriter(os.Stdout, level, format)
}

// InitWriter is Init with an explicit output, used by the CLI and tests.
func InitWriter(out io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339

	var l zerolog.Logger
	if format == "json" {
		l = zerolog.New(out)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	l = l.With().Timestamp().Logger().Level(lvl)

	log.Logger = l
	return l
}
