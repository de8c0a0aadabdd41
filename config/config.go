package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DevJWTSecret is used when JWT_SECRET is unset. Never deploy with it.
const DevJWTSecret = "dev_secret_change_me"

type Config struct {
	Env      string
	LogLevel string
	Server   ServerConfig
	Auth     AuthConfig
	Store    StoreConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Port int
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

type StoreConfig struct {
	Driver string // "memory", "mysql" or "postgres"
	DSN    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Load reads configuration from the environment. Call godotenv.Load first
// if values should come from a .env file.
func Load() (*Config, error) {
	port, err := getEnvInt("PORT", 3002)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	ttl, err := getEnvDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	cost, err := getEnvInt("BCRYPT_COST", bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cacheTTL, err := getEnvDuration("TENANT_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid TENANT_CACHE_TTL: %w", err)
	}

	cfg := &Config{
		Env:      getEnv("APP_ENV", "prod"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port: port,
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", DevJWTSecret),
			TokenTTL:   ttl,
			BcryptCost: cost,
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", "memory")),
			DSN:    getEnv("DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			TTL:      cacheTTL,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// UsesDevSecret reports whether tokens are signed with the built-in fallback.
func (c *Config) UsesDevSecret() bool {
	return c.Auth.JWTSecret == DevJWTSecret
}

func (c *Config) Validate() error {
	var problems []string
	switch c.Store.Driver {
	case "memory":
	case "mysql", "postgres":
		if c.Store.DSN == "" {
			problems = append(problems, "DSN is required for STORE_DRIVER="+c.Store.Driver)
		}
	default:
		problems = append(problems, "unknown STORE_DRIVER "+strconv.Quote(c.Store.Driver))
	}
	if c.Auth.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		problems = append(problems, fmt.Sprintf("BCRYPT_COST must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
