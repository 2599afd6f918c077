package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "api", cfg.Loader.Source)
	assert.Equal(t, "filter-events", cfg.Kafka.Topics.FilterEvents)
	assert.Equal(t, 500, cfg.Sessions.MaxSessions)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9999
loader:
  source: postgres
sessions:
  maxSessions: 3
  idleTimeout: 5m
redis:
  cacheTTL: 2m
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Loader.Source)
	assert.Equal(t, 3, cfg.Sessions.MaxSessions)
	assert.Equal(t, 5*time.Minute, cfg.Sessions.IdleTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Redis.CacheTTL)
	// untouched sections keep their defaults
	assert.Equal(t, "localhost", cfg.Postgres.Host)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RF_SERVER_PORT", "7070")
	t.Setenv("RF_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RF_REDIS_ENABLED", "false")
	t.Setenv("RF_LOADER_BASE_URL", "https://api.example.com")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "https://api.example.com", cfg.Loader.BaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Loader.Source = "mongo" }},
		{"api without url", func(c *Config) { c.Loader.BaseURL = "" }},
		{"no sessions", func(c *Config) { c.Sessions.MaxSessions = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestPostgresDSN(t *testing.T) {
	p := Default().Postgres
	assert.Equal(t,
		"host=localhost port=5432 user=rentals password=localdev dbname=rentals sslmode=disable",
		p.DSN())
}
