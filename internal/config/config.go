package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Voting    VotingConfig    `yaml:"voting"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP and storage settings
type ServerConfig struct {
	Port          int    `yaml:"port"`
	DBPath        string `yaml:"db_path"`
	AdminPassword string `yaml:"admin_password"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	BaseURL       string `yaml:"base_url"`
}

// VotingConfig holds voter identity and rate limit settings
type VotingConfig struct {
	VoterTokenSecret string  `yaml:"voter_token_secret"`
	DeviceSalt       string  `yaml:"device_salt"`
	RatePerSecond    float64 `yaml:"rate_per_second"`
	Burst            int     `yaml:"burst"`
	TrustProxy       bool    `yaml:"trust_proxy"`
}

// ReconcileConfig controls the periodic repair job
type ReconcileConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      8081,
			DBPath:    "sportsmeet.db",
			LogLevel:  "info",
			LogFormat: "text",
		},
		Voting: VotingConfig{
			DeviceSalt:    "sportsmeet",
			RatePerSecond: 2,
			Burst:         5,
		},
		Reconcile: ReconcileConfig{
			Enabled:  true,
			Schedule: "@every 5m",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads a YAML config file over the defaults and applies environment overrides.
// A missing file is not an error; the defaults plus environment are used.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("SPORTSMEET_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SPORTSMEET_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("SPORTSMEET_DB"); v != "" {
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("SPORTSMEET_ADMIN_PASSWORD"); v != "" {
		cfg.Server.AdminPassword = v
	}
	if v := os.Getenv("SPORTSMEET_LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("SPORTSMEET_LOG_FORMAT"); v != "" {
		cfg.Server.LogFormat = v
	}
	if v := os.Getenv("SPORTSMEET_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("SPORTSMEET_VOTER_TOKEN_SECRET"); v != "" {
		cfg.Voting.VoterTokenSecret = v
	}
	if v := os.Getenv("SPORTSMEET_DEVICE_SALT"); v != "" {
		cfg.Voting.DeviceSalt = v
	}
	if v := os.Getenv("SPORTSMEET_TRUST_PROXY"); v != "" {
		cfg.Voting.TrustProxy = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SPORTSMEET_RECONCILE_SCHEDULE"); v != "" {
		cfg.Reconcile.Schedule = v
	}
	if v := os.Getenv("SPORTSMEET_RECONCILE_ENABLED"); v != "" {
		cfg.Reconcile.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SPORTSMEET_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = strings.EqualFold(v, "true")
	}
	return nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.DBPath == "" {
		return errors.New("server.db_path is required")
	}
	switch strings.ToLower(c.Server.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("server.log_format must be text or json, got %q", c.Server.LogFormat)
	}
	if c.Voting.RatePerSecond <= 0 {
		return fmt.Errorf("voting.rate_per_second must be positive, got %v", c.Voting.RatePerSecond)
	}
	if c.Voting.Burst <= 0 {
		return fmt.Errorf("voting.burst must be positive, got %d", c.Voting.Burst)
	}
	if c.Reconcile.Enabled && c.Reconcile.Schedule == "" {
		return errors.New("reconcile.schedule is required when reconcile is enabled")
	}
	return nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
