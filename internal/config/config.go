package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bhandras/zenith/internal/logger"
	"github.com/caarlos0/env/v11"
)

// SeedFileName is the name of the persisted seed document. Unless overridden
// it lives next to the server executable.
const SeedFileName = "zenith_seed.json"

// Config holds server configuration.
type Config struct {
	// Port is the TCP port shared by the HTTP and websocket listeners.
	Port int `env:"ZENITH_PORT" envDefault:"3005"`
	// SeedPath is the file holding the persisted seed document.
	SeedPath string `env:"ZENITH_SEED_FILE"`
	// AutosaveInterval is the period of the unconditional autosave tick.
	AutosaveInterval time.Duration `env:"ZENITH_AUTOSAVE_INTERVAL" envDefault:"5m"`
	// ShutdownTimeout bounds the shutdown drain before connections are forced
	// closed.
	ShutdownTimeout time.Duration `env:"ZENITH_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	// JournalPath is the SQLite database used to journal successful saves.
	// Empty disables the journal.
	JournalPath string `env:"ZENITH_JOURNAL_PATH"`
	// JournalKeep is the number of journal entries retained after pruning.
	JournalKeep int `env:"ZENITH_JOURNAL_KEEP" envDefault:"50"`

	Debug    bool   `env:"DEBUG"`
	LogLevel string `env:"ZENITH_LOG_LEVEL" envDefault:"info"`
}

// Overrides optionally overrides values from environment variables.
//
// A nil pointer means "use the environment/default value".
type Overrides struct {
	Port             *int
	SeedPath         *string
	AutosaveInterval *time.Duration
	JournalPath      *string
	Debug            *bool
}

// Load loads server configuration from environment variables and applies any
// explicit overrides.
func Load(overrides Overrides) (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if overrides.Port != nil {
		cfg.Port = *overrides.Port
	}
	if overrides.SeedPath != nil {
		cfg.SeedPath = *overrides.SeedPath
	}
	if overrides.AutosaveInterval != nil {
		cfg.AutosaveInterval = *overrides.AutosaveInterval
	}
	if overrides.JournalPath != nil {
		cfg.JournalPath = *overrides.JournalPath
	}
	if overrides.Debug != nil {
		cfg.Debug = *overrides.Debug
	}

	if cfg.SeedPath == "" {
		cfg.SeedPath = defaultSeedPath()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Level returns the effective log level. Debug forces at least LevelDebug.
func (c *Config) Level() logger.Level {
	lvl, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		lvl = logger.LevelInfo
	}
	if c.Debug && lvl > logger.LevelDebug {
		lvl = logger.LevelDebug
	}
	return lvl
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid ZENITH_PORT %d", c.Port)
	}
	if c.AutosaveInterval <= 0 {
		return fmt.Errorf("ZENITH_AUTOSAVE_INTERVAL must be positive, got %s", c.AutosaveInterval)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("ZENITH_SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	if c.JournalKeep < 1 {
		return fmt.Errorf("ZENITH_JOURNAL_KEEP must be at least 1, got %d", c.JournalKeep)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid ZENITH_LOG_LEVEL: %w", err)
	}
	return nil
}

func defaultSeedPath() string {
	exe, err := os.Executable()
	if err != nil {
		return SeedFileName
	}
	return filepath.Join(filepath.Dir(exe), SeedFileName)
}
