package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CRICKBET_* environment variable overrides,
// and returns the final Config. An empty path skips the file and uses
// defaults plus environment overrides only. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CRICKBET_* environment variables
// and overwrites the corresponding Config fields when a variable is set
// (i.e. not empty). This lets operators inject secrets at deploy time
// without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setInt(&cfg.Server.Port, "CRICKBET_SERVER_PORT")
	setDuration(&cfg.Server.ShutdownTimeout, "CRICKBET_SERVER_SHUTDOWN_TIMEOUT")

	setStr(&cfg.Database.URL, "CRICKBET_DATABASE_URL")

	setStr(&cfg.Redis.Addr, "CRICKBET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CRICKBET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CRICKBET_REDIS_DB")
	setDuration(&cfg.Redis.CacheTTL, "CRICKBET_REDIS_CACHE_TTL")

	setInt(&cfg.Game.StartBalance, "CRICKBET_GAME_START_BALANCE")
	setInt(&cfg.Game.ReferralReward, "CRICKBET_GAME_REFERRAL_REWARD")

	setStr(&cfg.Snapshot.Path, "CRICKBET_SNAPSHOT_PATH")
	setDuration(&cfg.Snapshot.SaveInterval, "CRICKBET_SNAPSHOT_SAVE_INTERVAL")

	setStr(&cfg.LogLevel, "CRICKBET_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the
// environment variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
