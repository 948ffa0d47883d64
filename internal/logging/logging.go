// Package logging builds the application logger.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"slot-history-backend/config"
)

// New returns a timestamped logger writing to stdout.
func New(cfg config.LogConfig) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter returns a timestamped logger writing to out. Unknown levels
// fall back to info.
func NewWithWriter(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
