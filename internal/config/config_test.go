package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "sportsmeet.db", cfg.Server.DBPath)
	assert.True(t, cfg.Reconcile.Enabled)
	assert.Equal(t, "@every 5m", cfg.Reconcile.Schedule)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  db_path: /data/meet.db
  log_format: json
voting:
  voter_token_secret: s3cret
  rate_per_second: 10
  burst: 20
reconcile:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/data/meet.db", cfg.Server.DBPath)
	assert.Equal(t, "json", cfg.Server.LogFormat)
	assert.Equal(t, "s3cret", cfg.Voting.VoterTokenSecret)
	assert.Equal(t, 20, cfg.Voting.Burst)
	assert.False(t, cfg.Reconcile.Enabled)
	// untouched keys keep their defaults
	assert.Equal(t, "sportsmeet", cfg.Voting.DeviceSalt)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("SPORTSMEET_PORT", "9100")
	t.Setenv("SPORTSMEET_DB", ":memory:")
	t.Setenv("SPORTSMEET_RECONCILE_SCHEDULE", "@every 1m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.Server.DBPath)
	assert.Equal(t, "@every 1m", cfg.Reconcile.Schedule)
	assert.Equal(t, ":9100", cfg.Addr())
}

func TestLoad_TrustProxy(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Voting.TrustProxy, "forwarded headers are ignored by default")

	path := writeConfig(t, "voting:\n  trust_proxy: true\n")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Voting.TrustProxy)

	t.Setenv("SPORTSMEET_TRUST_PROXY", "false")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Voting.TrustProxy)
}

func TestLoad_InvalidEnvPort(t *testing.T) {
	t.Setenv("SPORTSMEET_PORT", "eighty")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"empty db", func(c *Config) { c.Server.DBPath = "" }},
		{"bad format", func(c *Config) { c.Server.LogFormat = "xml" }},
		{"zero rate", func(c *Config) { c.Voting.RatePerSecond = 0 }},
		{"zero burst", func(c *Config) { c.Voting.Burst = 0 }},
		{"missing schedule", func(c *Config) { c.Reconcile.Schedule = "" }},
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
