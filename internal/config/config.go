// Package config loads the portal configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Admin    AdminConfig    `yaml:"admin"`
	Session  SessionConfig  `yaml:"session"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig holds the storage DSN; the dialect is inferred from it.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig holds the notification queue connection. An empty address
// disables the queue and falls back to log-only dispatch.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Queue    string `yaml:"queue"`
}

// LoggingConfig controls log level and optional rotating file output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// GatewayConfig holds the payment gateway callback settings.
type GatewayConfig struct {
	WebhookSecret string `yaml:"webhook_secret"`
}

// AdminConfig holds staff authentication settings. BootstrapUsername and
// BootstrapPassword seed a first account when the admins table is empty.
type AdminConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
	BootstrapUsername string        `yaml:"bootstrap_username"`
	BootstrapPassword string        `yaml:"bootstrap_password"`
}

// SessionConfig holds purchase session policy.
type SessionConfig struct {
	TTL         time.Duration `yaml:"ttl"`
	SweepPeriod time.Duration `yaml:"sweep_period"`
	SweepGrace  time.Duration `yaml:"sweep_grace"`
}

// Load reads the config file at path, applies env overrides and defaults.
// A missing file is not an error; env and defaults still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if strings.TrimSpace(path) != "" {
		data, errRead := os.ReadFile(path)
		switch {
		case errRead == nil:
			if errDecode := yaml.Unmarshal(data, cfg); errDecode != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, errDecode)
			}
		case os.IsNotExist(errRead):
			// fall through to env and defaults
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GREENFEES_PORT"); v != "" {
		if port, errParse := strconv.Atoi(v); errParse == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GREENFEES_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("GREENFEES_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("GREENFEES_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("GREENFEES_WEBHOOK_SECRET"); v != "" {
		cfg.Gateway.WebhookSecret = v
	}
	if v := os.Getenv("GREENFEES_ADMIN_JWT_SECRET"); v != "" {
		cfg.Admin.JWTSecret = v
	}
	if v := os.Getenv("GREENFEES_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		cfg.Database.DSN = "file:greenfees.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 100
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = 5
	}
	if cfg.Logging.MaxAgeDays <= 0 {
		cfg.Logging.MaxAgeDays = 30
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 12 * time.Hour
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = 30 * time.Minute
	}
	if cfg.Session.SweepPeriod <= 0 {
		cfg.Session.SweepPeriod = time.Hour
	}
	if cfg.Session.SweepGrace <= 0 {
		cfg.Session.SweepGrace = 24 * time.Hour
	}
}
