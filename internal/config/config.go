// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Console modes.
const (
	ConsoleAuto = "auto"
	ConsoleOn   = "on"
	ConsoleOff  = "off"
)

// MemoryStore is the CAREER_DB_PATH value that keeps saves in process memory.
const MemoryStore = "memory"

// Config holds every tunable of the careersim process.
type Config struct {
	DBPath           string        `env:"CAREER_DB_PATH" envDefault:"data/career.db"`
	SaveKey          string        `env:"CAREER_SAVE_KEY" envDefault:"constructor-career-clicker-save"`
	TickInterval     time.Duration `env:"CAREER_TICK_INTERVAL" envDefault:"100ms"`
	TickSeconds      float64       `env:"CAREER_TICK_SECONDS" envDefault:"0.1"`
	AutosaveInterval time.Duration `env:"CAREER_AUTOSAVE_INTERVAL" envDefault:"5s"`
	APIPort          int           `env:"CAREER_API_PORT" envDefault:"8080"` // 0 disables the HTTP API
	AdminKey         string        `env:"CAREER_ADMIN_KEY"`
	ContentPath      string        `env:"CAREER_CONTENT_PATH"`
	LogLevel         string        `env:"CAREER_LOG_LEVEL" envDefault:"info"`
	Console          string        `env:"CAREER_CONSOLE" envDefault:"auto"`
	CORSOrigins      []string      `env:"CORS_ORIGINS" envSeparator:","`
}

// Parse reads the configuration from the process environment.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration with every variable unset.
func Default() Config {
	var cfg Config
	// Defaults are string literals above; parsing them cannot fail.
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

// Load is Parse, falling back to Default when the environment is malformed.
func Load() Config {
	cfg, err := Parse()
	if err != nil {
		slog.Error("invalid environment, using defaults", "error", err)
		return Default()
	}
	return cfg
}

// Validate reports settings the process cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("CAREER_TICK_INTERVAL must be positive, got %s", c.TickInterval))
	}
	if c.TickSeconds <= 0 {
		errs = append(errs, fmt.Errorf("CAREER_TICK_SECONDS must be positive, got %g", c.TickSeconds))
	}
	if c.AutosaveInterval <= 0 {
		errs = append(errs, fmt.Errorf("CAREER_AUTOSAVE_INTERVAL must be positive, got %s", c.AutosaveInterval))
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("CAREER_API_PORT out of range: %d", c.APIPort))
	}
	switch c.Console {
	case ConsoleAuto, ConsoleOn, ConsoleOff:
	default:
		errs = append(errs, fmt.Errorf("CAREER_CONSOLE must be auto, on or off, got %q", c.Console))
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("CAREER_LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}

// SlogLevel returns the configured log level, info when unparseable.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ConsoleEnabled reports whether the interactive console should run given
// whether stdin is a terminal.
func (c Config) ConsoleEnabled(isTTY bool) bool {
	switch c.Console {
	case ConsoleOn:
		return true
	case ConsoleOff:
		return false
	}
	return isTTY
}

// InMemory reports whether saves should stay in process memory.
func (c Config) InMemory() bool {
	return c.DBPath == "" || c.DBPath == MemoryStore
}
