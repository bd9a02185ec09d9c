package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by the gateway.
const (
	EnvConfigPath     = "CONFIG_PATH"
	EnvDBConnection   = "DB_CONNECTION"
	EnvJWTSecret      = "JWT_SECRET"
	EnvJWTExpiry      = "JWT_EXPIRY"
	EnvUpstreamAPIKey = "UPSTREAM_API_KEY"
)

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database.dsn` in config file or DB_CONNECTION)")

// ErrMissingUpstreamAPIKey indicates no upstream credential is configured.
var ErrMissingUpstreamAPIKey = errors.New("missing upstream api key (set `upstream.api-key` in config file or UPSTREAM_API_KEY)")

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// UpstreamConfig holds the upstream completion provider settings.
type UpstreamConfig struct {
	BaseURL string `yaml:"base-url"`
	APIKey  string `yaml:"api-key"`
	Model   string `yaml:"model"`
	// Mock short-circuits the provider with a canned stream for local
	// development. Never enabled implicitly.
	Mock bool `yaml:"mock"`
}

// CategoryQuota defines a sliding-window quota for one request category.
type CategoryQuota struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// BurstConfig holds the optional per-second burst limiter settings.
type BurstConfig struct {
	PerSecond     int    `yaml:"per-second"`
	RedisEnabled  bool   `yaml:"redis-enabled"`
	RedisAddr     string `yaml:"redis-addr"`
	RedisPassword string `yaml:"redis-password"`
	RedisDB       int    `yaml:"redis-db"`
	RedisPrefix   string `yaml:"redis-prefix"`
}

// RateLimitConfig holds quota and burst limiter settings.
type RateLimitConfig struct {
	// Bypass disables all rate limiting. Development only; the limiter
	// never falls back to this on error.
	Bypass     bool                     `yaml:"bypass"`
	Categories map[string]CategoryQuota `yaml:"categories"`
	Burst      BurstConfig              `yaml:"burst"`
}

// ModelPrice defines USD-per-million-token rates for one model.
type ModelPrice struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// AssistantConfig holds prompt assembly settings.
type AssistantConfig struct {
	Instructions string `yaml:"instructions"`
}

// DevConfig holds narrowly scoped development settings.
type DevConfig struct {
	// UserID, when set, resolves every unauthenticated request to this
	// fixed identity instead of failing authorization.
	UserID string `yaml:"user-id"`
}

// Config holds the resolved gateway configuration.
type Config struct {
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	JWT       JWTConfig             `yaml:"jwt"`
	Upstream  UpstreamConfig        `yaml:"upstream"`
	RateLimit RateLimitConfig       `yaml:"rate-limit"`
	Pricing   map[string]ModelPrice `yaml:"pricing"`
	Assistant AssistantConfig       `yaml:"assistant"`
	Dev       DevConfig             `yaml:"dev"`
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load reads the YAML config file and applies env overrides and defaults.
//
// A missing file is not an error; env variables alone can carry a minimal
// configuration for containerized deployments.
func Load(configPath string) (Config, error) {
	var cfg Config

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", configPath, errUnmarshal)
		}
	} else if !os.IsNotExist(errRead) {
		return Config{}, fmt.Errorf("config: read %s: %w", configPath, errRead)
	}

	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		cfg.JWT.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			cfg.JWT.Expiry = expiry
		}
	}
	if key := strings.TrimSpace(os.Getenv(EnvUpstreamAPIKey)); key != "" {
		cfg.Upstream.APIKey = key
	}

	applyDefaults(&cfg)

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return Config{}, ErrMissingDatabaseDSN
	}
	return cfg, nil
}

// Default quota values applied when the config omits a category.
const (
	DefaultChatLimit   = 30
	DefaultImageLimit  = 10
	DefaultQuotaWindow = time.Hour
)

// Request categories with built-in quota defaults.
const (
	CategoryChat  = "chat"
	CategoryImage = "image"
)

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		cfg.Server.Port = 8318
	}
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = defaultJWTExpiry
	}
	if strings.TrimSpace(cfg.Upstream.Model) == "" {
		cfg.Upstream.Model = "gpt-4o-mini"
	}
	if cfg.RateLimit.Categories == nil {
		cfg.RateLimit.Categories = map[string]CategoryQuota{}
	}
	ensureQuota(cfg.RateLimit.Categories, CategoryChat, DefaultChatLimit)
	ensureQuota(cfg.RateLimit.Categories, CategoryImage, DefaultImageLimit)
	if strings.TrimSpace(cfg.RateLimit.Burst.RedisPrefix) == "" {
		cfg.RateLimit.Burst.RedisPrefix = "llgw:rl"
	}
	if cfg.RateLimit.Burst.RedisDB < 0 {
		cfg.RateLimit.Burst.RedisDB = 0
	}
	if cfg.Pricing == nil {
		cfg.Pricing = map[string]ModelPrice{}
	}
	if strings.TrimSpace(cfg.Assistant.Instructions) == "" {
		cfg.Assistant.Instructions = DefaultInstructions
	}
}

func ensureQuota(categories map[string]CategoryQuota, name string, limit int) {
	quota := categories[name]
	if quota.Limit <= 0 {
		quota.Limit = limit
	}
	if quota.Window <= 0 {
		quota.Window = DefaultQuotaWindow
	}
	categories[name] = quota
}

// DefaultInstructions is the base system prompt for the teaching assistant.
const DefaultInstructions = "You are an experienced teaching assistant helping a teacher plan lessons, " +
	"draft parent communication, and reason about student progress. Be concise, " +
	"practical, and specific to the classroom context you are given."
