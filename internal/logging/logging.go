// Package logging sets up the process-wide zerolog logger: level parsing,
// and a choice between JSON (production) and console (development) output.
package logging

import (
	"os"

	"github.com/example/ytresolver/internal/config"
	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger from the logging config.
func New(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
