// Package config loads gotale settings from the environment. Command-line
// flags use these values as their defaults.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/itsmostafa/gotale/internal/console"
)

// Config holds player settings.
type Config struct {
	// Color is auto, always or never.
	Color string `env:"GOTALE_COLOR" envDefault:"auto"`
	// LogFile enables JSON logging to the given path. Empty disables logging.
	LogFile string `env:"GOTALE_LOG_FILE"`
	// LogLevel is a zerolog level name.
	LogLevel string `env:"GOTALE_LOG_LEVEL" envDefault:"info"`
	// ExprTimeout bounds a single story expression. Zero disables the bound.
	ExprTimeout time.Duration `env:"GOTALE_EXPR_TIMEOUT" envDefault:"2s"`
	// Start overrides the story's start passage.
	Start string `env:"GOTALE_START"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks settings that flags or the environment may have set badly.
func (c Config) Validate() error {
	switch console.ColorMode(c.Color) {
	case console.ColorAuto, console.ColorAlways, console.ColorNever:
	default:
		return fmt.Errorf("invalid color mode %q (valid options: auto, always, never)", c.Color)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	if c.ExprTimeout < 0 {
		return fmt.Errorf("expression timeout must not be negative, got %s", c.ExprTimeout)
	}

	return nil
}

// ColorMode returns the configured color mode.
func (c Config) ColorMode() console.ColorMode {
	return console.ColorMode(c.Color)
}
