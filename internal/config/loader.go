package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path (skipped when path is empty),
// merges it on top of the built-in defaults, applies AUCTION_* environment
// variable overrides, and returns the final Config. The caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known AUCTION_* environment variables and
// overwrites the corresponding Config fields when a variable is set, so
// operators can adjust deployment knobs without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setInt(&cfg.Server.Port, "AUCTION_SERVER_PORT")
	setDuration(&cfg.Server.ShutdownTimeout, "AUCTION_SERVER_SHUTDOWN_TIMEOUT")

	setInt(&cfg.Grant.MaxDownloads, "AUCTION_GRANT_MAX_DOWNLOADS")
	setDuration(&cfg.Grant.TTL, "AUCTION_GRANT_TTL")
	setDuration(&cfg.Grant.AccessTTL, "AUCTION_GRANT_ACCESS_TTL")

	setDuration(&cfg.Sweep.Interval, "AUCTION_SWEEP_INTERVAL")

	setInt(&cfg.Notify.QueueSize, "AUCTION_NOTIFY_QUEUE_SIZE")

	setStr(&cfg.LogLevel, "AUCTION_LOG_LEVEL")
}

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
