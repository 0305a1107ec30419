// Package logger builds the process zerolog logger.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

func New(level string, development bool) *zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var l zerolog.Logger
	if development {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		l = zerolog.New(os.Stdout)
	}
	l = l.Level(lvl).With().Timestamp().Logger()
	return &l
}
