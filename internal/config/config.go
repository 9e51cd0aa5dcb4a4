// Package config defines the wager engine configuration and provides
// validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from
// a TOML file and then optionally overridden by CRICKBET_* environment
// variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Game     GameConfig     `toml:"game"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int      `toml:"port"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters. An empty URL
// selects the in-memory store.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// RedisConfig holds Redis cache parameters. An empty Addr disables the
// read-through cache.
type RedisConfig struct {
	Addr     string   `toml:"addr"`
	Password string   `toml:"password"`
	DB       int      `toml:"db"`
	CacheTTL duration `toml:"cache_ttl"`
}

// GameConfig holds the point economy parameters.
type GameConfig struct {
	StartBalance   int `toml:"start_balance"`
	ReferralReward int `toml:"referral_reward"`
}

// SnapshotConfig holds the periodic state snapshot parameters. An empty
// Path disables snapshots.
type SnapshotConfig struct {
	Path         string   `toml:"path"`
	SaveInterval duration `toml:"save_interval"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder
// can parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: duration{10 * time.Second},
		},
		Redis: RedisConfig{
			Addr:     "",
			DB:       0,
			CacheTTL: duration{30 * time.Second},
		},
		Game: GameConfig{
			StartBalance:   1000,
			ReferralReward: 5,
		},
		Snapshot: SnapshotConfig{
			Path:         "",
			SaveInterval: duration{time.Minute},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if c.Game.StartBalance <= 0 {
		errs = append(errs, "game: start_balance must be > 0")
	}
	if c.Game.ReferralReward < 0 {
		errs = append(errs, "game: referral_reward must be >= 0")
	}
	if c.Snapshot.Path != "" && c.Snapshot.SaveInterval.Duration <= 0 {
		errs = append(errs, "snapshot: save_interval must be > 0 when path is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
