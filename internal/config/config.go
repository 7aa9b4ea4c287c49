// Package config defines the engine's configuration and its validation. A
// TOML file supplies the base values and AUCTION_* environment variables
// override individual fields at deploy time.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig `toml:"server"`
	Grant    GrantConfig  `toml:"grant"`
	Sweep    SweepConfig  `toml:"sweep"`
	Notify   NotifyConfig `toml:"notify"`
	LogLevel string       `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int      `toml:"port"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// GrantConfig is the content-grant policy handed to auction winners.
type GrantConfig struct {
	MaxDownloads int      `toml:"max_downloads"`
	TTL          duration `toml:"ttl"`
	AccessTTL    duration `toml:"access_ttl"`
}

// SweepConfig controls the expiry sweeper.
type SweepConfig struct {
	Interval duration `toml:"interval"`
}

// NotifyConfig controls the async dispatch queue.
type NotifyConfig struct {
	QueueSize int `toml:"queue_size"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "72h", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
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
		Grant: GrantConfig{
			MaxDownloads: 3,
			TTL:          duration{72 * time.Hour},
			AccessTTL:    duration{5 * time.Minute},
		},
		Sweep: SweepConfig{
			Interval: duration{5 * time.Second},
		},
		Notify: NotifyConfig{
			QueueSize: 256,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Grant.MaxDownloads <= 0 {
		return fmt.Errorf("config: grant max_downloads must be positive, got %d", c.Grant.MaxDownloads)
	}
	if c.Grant.TTL.Duration <= 0 {
		return fmt.Errorf("config: grant ttl must be positive, got %s", c.Grant.TTL)
	}
	if c.Grant.AccessTTL.Duration <= 0 {
		return fmt.Errorf("config: grant access_ttl must be positive, got %s", c.Grant.AccessTTL)
	}
	if c.Sweep.Interval.Duration <= 0 {
		return fmt.Errorf("config: sweep interval must be positive, got %s", c.Sweep.Interval)
	}
	if c.Notify.QueueSize <= 0 {
		return fmt.Errorf("config: notify queue_size must be positive, got %d", c.Notify.QueueSize)
	}
	return nil
}
