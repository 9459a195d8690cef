// Package config loads server configuration from the environment and
// command-line flags.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server settings known at startup. Settings that change
// at runtime live in the database instead.
type Config struct {
	DBPath         string        `env:"ZALOGA_DB" envDefault:"zaloga.sqlite3"`
	Addr           string        `env:"ZALOGA_ADDR" envDefault:":8080"`
	LogPath        string        `env:"ZALOGA_LOG"`
	AdminUser      string        `env:"ZALOGA_ADMIN_USER" envDefault:"Admin"`
	TrackingPrefix string        `env:"ZALOGA_TRACKING_PREFIX" envDefault:"TC"`
	TokenTTL       time.Duration `env:"ZALOGA_TOKEN_TTL" envDefault:"168h"`
	KioskIdle      time.Duration `env:"ZALOGA_KIOSK_IDLE" envDefault:"15m"`
	Metrics        bool          `env:"ZALOGA_METRICS" envDefault:"true"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.DBPath == "":
		return fmt.Errorf("database path must not be empty")
	case c.TrackingPrefix == "":
		return fmt.Errorf("tracking prefix must not be empty")
	case c.TokenTTL <= 0:
		return fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL)
	case c.KioskIdle <= 0:
		return fmt.Errorf("kiosk idle timeout must be positive, got %s", c.KioskIdle)
	}
	return nil
}

// BindFlags registers short and long flags on fs. The current values act as
// defaults, so flags parsed after Load override the environment.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DBPath, "db", c.DBPath, "")
	fs.StringVar(&c.DBPath, "d", c.DBPath, "")

	fs.StringVar(&c.Addr, "addr", c.Addr, "")
	fs.StringVar(&c.Addr, "a", c.Addr, "")

	fs.StringVar(&c.AdminUser, "user", c.AdminUser, "")
	fs.StringVar(&c.AdminUser, "u", c.AdminUser, "")

	fs.StringVar(&c.LogPath, "log", c.LogPath, "")
	fs.StringVar(&c.LogPath, "l", c.LogPath, "")

	fs.StringVar(&c.TrackingPrefix, "prefix", c.TrackingPrefix, "")
	fs.DurationVar(&c.TokenTTL, "token-ttl", c.TokenTTL, "")
	fs.DurationVar(&c.KioskIdle, "kiosk-idle", c.KioskIdle, "")
	fs.BoolVar(&c.Metrics, "metrics", c.Metrics, "")
}
