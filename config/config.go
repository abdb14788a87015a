// Package config loads the process-wide settings once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// FallbackJWTSecret is used when no signing key is configured.
// Deployments must override it with JWT_SECRET.
const FallbackJWTSecret = "your_jwt_secret"

// Bounds accepted by the embedded NATS server for NATS_MAX_PAYLOAD.
const (
	MinNATSMaxPayload int32 = 1024
	MaxNATSMaxPayload int32 = 8 * 1024 * 1024
)

type HTTPConfig struct {
	Port        int    `yaml:"port" env:"PORT" env-default:"5000"`
	CORSOrigins string `yaml:"cors_origins" env:"CORS_ORIGINS" env-default:"*"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	URL    string `yaml:"url" env:"DATABASE_URL" env-default:"taskmanagement.db"`
	Debug  bool   `yaml:"debug" env:"DB_DEBUG" env-default:"false"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"JWT_TTL" env-default:"24h"`
	BcryptCost int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	TTL           time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"5m"`
	Prefix        string        `yaml:"prefix" env:"CACHE_PREFIX" env-default:"tasks:"`
}

// Config is built once in main and handed to every module constructor.
// NATSMaxPayload caps a single request-reply message between modules. List
// replies carry every row, so it defaults to the server maximum.
type Config struct {
	LogLevel        string         `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
	NATSMaxPayload  int32          `yaml:"nats_max_payload" env:"NATS_MAX_PAYLOAD" env-default:"8388608"`
	HTTP            HTTPConfig     `yaml:"http"`
	Database        DatabaseConfig `yaml:"database"`
	Auth            AuthConfig     `yaml:"auth"`
	Cache           CacheConfig    `yaml:"cache"`
}

// Load reads an optional .env file, then the YAML file at configPath (if any),
// then the environment. Missing files are not an error.
func Load(configPath string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("cannot read env: %w", err)
		}
	} else if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		var pe *os.PathError
		if !errors.As(err, &pe) {
			return Config{}, fmt.Errorf("cannot read config %q: %w", configPath, err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("cannot read env: %w", err)
		}
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = FallbackJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the modules cannot run with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return errors.New("config: DATABASE_URL is empty")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: invalid PORT %d", c.HTTP.Port)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("config: BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: JWT_TTL must be positive")
	}
	if c.Cache.TTL <= 0 {
		return errors.New("config: CACHE_TTL must be positive")
	}
	if c.NATSMaxPayload < MinNATSMaxPayload || c.NATSMaxPayload > MaxNATSMaxPayload {
		return fmt.Errorf("config: NATS_MAX_PAYLOAD must be between %d and %d", MinNATSMaxPayload, MaxNATSMaxPayload)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("config: SHUTDOWN_TIMEOUT must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "info", "error":
	default:
		return fmt.Errorf("config: unsupported LOG_LEVEL %q", c.LogLevel)
	}
	return nil
}

// UsesFallbackSecret reports whether tokens are signed with the built-in key.
func (c Config) UsesFallbackSecret() bool {
	return c.Auth.JWTSecret == FallbackJWTSecret
}

// CacheEnabled reports whether a Redis address was configured.
func (c Config) CacheEnabled() bool {
	return c.Cache.RedisAddr != ""
}

// HTTPAddr returns the listen address for the HTTP server.
func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}
