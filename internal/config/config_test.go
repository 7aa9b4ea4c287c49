package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 3, cfg.Grant.MaxDownloads)
	require.Equal(t, 72*time.Hour, cfg.Grant.TTL.Duration)
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[server]
port = 9090

[grant]
max_downloads = 5
ttl = "24h"

[sweep]
interval = "1s"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 5, cfg.Grant.MaxDownloads)
	require.Equal(t, 24*time.Hour, cfg.Grant.TTL.Duration)
	require.Equal(t, time.Second, cfg.Sweep.Interval.Duration)
	// Untouched sections keep their defaults.
	require.Equal(t, 5*time.Minute, cfg.Grant.AccessTTL.Duration)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9090\n"), 0o600))

	t.Setenv("AUCTION_SERVER_PORT", "7070")
	t.Setenv("AUCTION_GRANT_TTL", "48h")
	t.Setenv("AUCTION_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, 48*time.Hour, cfg.Grant.TTL.Duration)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad_port", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "bad_max_downloads", mutate: func(c *Config) { c.Grant.MaxDownloads = 0 }},
		{name: "bad_grant_ttl", mutate: func(c *Config) { c.Grant.TTL.Duration = 0 }},
		{name: "bad_access_ttl", mutate: func(c *Config) { c.Grant.AccessTTL.Duration = -time.Second }},
		{name: "bad_sweep_interval", mutate: func(c *Config) { c.Sweep.Interval.Duration = 0 }},
		{name: "bad_queue_size", mutate: func(c *Config) { c.Notify.QueueSize = 0 }},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
