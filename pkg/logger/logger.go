package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config mirrors the logger section of the YAML config, plus the service
// name stamped on every event.
type Config struct {
	Service    string
	Level      string
	TimeFormat string
	Pretty     bool
}

// Default builds an info-level JSON logger for use before the config is
// loaded.
func Default(service string) zerolog.Logger {
	return New(Config{Service: service, Level: "info"})
}

func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: cfg.TimeFormat,
		}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.Service).
		Logger()
}
