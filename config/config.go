package config

import (
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Bank       BankConfig       `yaml:"bank"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port                int     `yaml:"port"`
	RateLimitPerSec     float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst      int     `yaml:"rate_limit_burst"`
	AuthRateLimitPerSec float64 `yaml:"auth_rate_limit_per_sec"`
	AuthRateLimitBurst  int     `yaml:"auth_rate_limit_burst"`
	CacheTTLSeconds     int     `yaml:"cache_ttl_seconds"` // How long the appliance price list is served from memory
	AdminKey            string  `yaml:"admin_key"`         // Empty disables the admin routes
}

// AuthConfig holds the token signing configuration.
type AuthConfig struct {
	SigningKey                 string        `yaml:"signing_key"`
	Algorithm                  string        `yaml:"algorithm"`
	Issuer                     string        `yaml:"issuer"`
	AccessTokenLifetimeMinutes int           `yaml:"access_token_lifetime_minutes"`
	AccessTokenLifetime        time.Duration `yaml:"-"`
}

// BankConfig holds the bank statement poller configuration.
type BankConfig struct {
	Enabled         bool              `yaml:"enabled"`
	IntervalSeconds int               `yaml:"interval_seconds"`
	Interval        time.Duration     `yaml:"-"`
	URL             string            `yaml:"url"`
	Headers         map[string]string `yaml:"headers"`
	HTTPProxy       string            `yaml:"http_proxy"`
	Currency        string            `yaml:"currency"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// LogConfig controls the global zerolog logger.
type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Auth.SigningKey == "" {
		return errors.New("auth.signing_key must be set")
	}
	if cfg.Auth.Algorithm == "" {
		cfg.Auth.Algorithm = "HS256"
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "Backend"
	}
	if cfg.Auth.AccessTokenLifetimeMinutes <= 0 {
		cfg.Auth.AccessTokenLifetimeMinutes = 5
	}
	cfg.Auth.AccessTokenLifetime = time.Duration(cfg.Auth.AccessTokenLifetimeMinutes) * time.Minute

	if cfg.Bank.IntervalSeconds <= 0 {
		cfg.Bank.IntervalSeconds = 300
	}
	cfg.Bank.Interval = time.Duration(cfg.Bank.IntervalSeconds) * time.Second
	if cfg.Bank.Currency == "" {
		cfg.Bank.Currency = "CZK"
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.AuthRateLimitPerSec <= 0 {
		cfg.Server.AuthRateLimitPerSec = 1
	}
	if cfg.Server.AuthRateLimitBurst <= 0 {
		cfg.Server.AuthRateLimitBurst = 3
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Warn().Msg("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return nil
}

// Configure applies the level and output format to the global zerolog logger.
func (c LogConfig) Configure() {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
