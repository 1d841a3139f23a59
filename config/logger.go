package config

import (
	"io"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"
)

// Supported values for LogConfig.Format.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// LogConfig selects the level and output format of the process logger.
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.By(func(value any) error {
			_, err := zerolog.ParseLevel(value.(string))
			return err
		})),
		validation.Field(&c.Format, validation.In(FormatJSON, FormatConsole)),
	)
}

// NewLogger builds a zerolog logger writing to w, or stderr when w is nil.
// An unknown level falls back to info.
func NewLogger(cfg LogConfig, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if cfg.Format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
