// Package observability configures structured logging for the conversion
// pipeline.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig controls logger construction.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error. Defaults to info.
	Level string
	// Format is "json" or "console". Defaults to json.
	Format string
	// Output defaults to stderr.
	Output io.Writer
	// Service is attached to every event as the "service" field.
	Service string
}

// NewLogger builds a zerolog.Logger from cfg. Unknown levels fall back to
// info rather than failing startup.
func NewLogger(cfg LogConfig) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.Service != "" {
		logger = logger.Str("service", cfg.Service)
	}
	return logger.Logger()
}

// Nop returns a disabled logger for tests and library defaults.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
