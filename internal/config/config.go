package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	SES         SESConfig         `yaml:"ses"`
	Dispatch    DispatchConfig    `yaml:"dispatch"`
	Unsubscribe UnsubscribeConfig `yaml:"unsubscribe"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int      `yaml:"port"`
	Host        string   `yaml:"host"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns the listen address for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnLifetime returns ConnMaxLifetime as a duration.
func (c DatabaseConfig) ConnLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Minute
}

// RedisConfig holds the optional Redis connection used for dispatch locks.
// An empty URL falls back to Postgres advisory locks.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// SESConfig holds transport overrides. Credentials are per account and
// live in the database, not here.
type SESConfig struct {
	// Endpoint replaces the regional SES endpoint, e.g. for a local mock.
	Endpoint string `yaml:"endpoint"`
}

// DispatchConfig tunes batch dispatch
type DispatchConfig struct {
	BatchSize          int `yaml:"batch_size"`
	BatchPauseMS       int `yaml:"batch_pause_ms"`
	SendTimeoutSeconds int `yaml:"send_timeout_seconds"`
	BulkBatchSize      int `yaml:"bulk_batch_size"`
	MaxBulkBatchSize   int `yaml:"max_bulk_batch_size"`
	LockTTLMinutes     int `yaml:"lock_ttl_minutes"`
}

// BatchPause returns the pause between campaign batches.
func (c DispatchConfig) BatchPause() time.Duration {
	return time.Duration(c.BatchPauseMS) * time.Millisecond
}

// SendTimeout returns the per-message transport deadline.
func (c DispatchConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// LockTTL returns how long a dispatch lock is held before it expires.
func (c DispatchConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMinutes) * time.Minute
}

// UnsubscribeConfig holds the public unsubscribe endpoint base
type UnsubscribeConfig struct {
	BaseURL string `yaml:"base_url"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether recipient addresses are masked in logs. Defaults to true.
func (c LogConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (cfg *Config) setDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5
	}
	if cfg.Dispatch.BatchSize == 0 {
		cfg.Dispatch.BatchSize = 10
	}
	if cfg.Dispatch.BatchPauseMS == 0 {
		cfg.Dispatch.BatchPauseMS = 1000
	}
	if cfg.Dispatch.SendTimeoutSeconds == 0 {
		cfg.Dispatch.SendTimeoutSeconds = 30
	}
	if cfg.Dispatch.BulkBatchSize == 0 {
		cfg.Dispatch.BulkBatchSize = 50
	}
	if cfg.Dispatch.MaxBulkBatchSize == 0 {
		cfg.Dispatch.MaxBulkBatchSize = 5000
	}
	if cfg.Dispatch.LockTTLMinutes == 0 {
		cfg.Dispatch.LockTTLMinutes = 30
	}
	if cfg.Unsubscribe.BaseURL == "" {
		cfg.Unsubscribe.BaseURL = "http://localhost:5000/api/email"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars. A missing
// config file is not an error here; defaults plus env are enough to run.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if os.IsNotExist(err) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("SES_ENDPOINT"); v != "" {
		cfg.SES.Endpoint = v
	}
	if v := os.Getenv("UNSUBSCRIBE_BASE_URL"); v != "" {
		cfg.Unsubscribe.BaseURL = v
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, nil
}
