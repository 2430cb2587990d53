package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	p := writeConfig(t, "db:\n  path: \"/tmp/stats.db\"\n")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "http://172.16.0.189", cfg.Device.URL)
	assert.Equal(t, 10*time.Second, cfg.DeviceTimeout())
	assert.Equal(t, time.Minute, cfg.CollectionInterval())
	assert.Equal(t, 90, cfg.Collection.RetentionDays)

	h, m := cfg.CleanupClock()
	assert.Equal(t, 2, h)
	assert.Equal(t, 30, m)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	p := writeConfig(t, `
env: development
db:
  path: "/tmp/stats.db"
device:
  url: "http://10.0.0.2"
`)
	t.Setenv("NODE_ENV", "Production")
	t.Setenv("DEVICE_URL", "http://10.0.0.9")
	t.Setenv("COLLECTION_INTERVAL", "30000")
	t.Setenv("STATS_RETENTION_DAYS", "7")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "http://10.0.0.9", cfg.Device.URL)
	assert.Equal(t, 30*time.Second, cfg.CollectionInterval())
	assert.Equal(t, 7, cfg.Collection.RetentionDays)
}

func TestLoad_MissingDBPathIsFatal(t *testing.T) {
	t.Setenv("DB_PATH", "")
	p := writeConfig(t, "port: \"8080\"\n")

	_, err := Load(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequired)
}

func TestLoad_UnreadableFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Port:     "3000",
		Env:      EnvProduction,
		LogLevel: "info",
		DB:       DBConfig{Path: "/tmp/x.db"},
		Device: DeviceConfig{
			URL:       "http://172.16.0.189",
			TimeoutMs: 10000,
			ID:        "default",
		},
		Collection: CollectionConfig{
			IntervalMs:    60000,
			RetentionDays: 90,
			CleanupAt:     "02:30",
			Timezone:      "Europe/Berlin",
		},
		Stream: StreamConfig{IntervalMs: 2000},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cases := map[string]func(c *Config){
		"unknown env":        func(c *Config) { c.Env = "staging" },
		"unknown log level":  func(c *Config) { c.LogLevel = "verbose" },
		"zero retention":     func(c *Config) { c.Collection.RetentionDays = 0 },
		"interval too short": func(c *Config) { c.Collection.IntervalMs = 10 },
		"bad cleanup clock":  func(c *Config) { c.Collection.CleanupAt = "25:99" },
		"mqtt without host":  func(c *Config) { c.MQTT.Enabled = true },
		"influx w/o bucket":  func(c *Config) { c.Influx.Enabled = true; c.Influx.URL = "http://x" },
		"empty device url":   func(c *Config) { c.Device.URL = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
