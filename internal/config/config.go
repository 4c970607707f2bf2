// Package config loads the helpdesk settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// devJWTSecret is only accepted outside release mode
const devJWTSecret = "default_super_secret_key_for_development"

type Config struct {
	Env      string
	Port     string
	GinMode  string
	LogLevel string

	Database DatabaseConfig
	JWT      JWTConfig
	Answer   AnswerConfig
	Redis    RedisConfig
	Limit    RateLimitConfig
	Queue    QueueConfig
	SeedHR   SeedUserConfig

	BcryptCost     int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver   string
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type AnswerConfig struct {
	URL          string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// SeedUserConfig describes the hr account created at startup when Email is set
type SeedUserConfig struct {
	Name     string
	Email    string
	Mobile   string
	Password string
}

type QueueConfig struct {
	URL   string
	Queue string
}

// Load reads envFile (missing file is fine) and the process environment
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:      v.GetString("APP_ENV"),
		Port:     v.GetString("APP_PORT"),
		GinMode:  v.GetString("GIN_MODE"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWT: JWTConfig{
			Secret:        v.GetString("JWT_SECRET"),
			AccessExpiry:  v.GetDuration("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: v.GetDuration("JWT_REFRESH_EXPIRY"),
		},
		Answer: AnswerConfig{
			URL:          v.GetString("ANSWER_SERVICE_URL"),
			Timeout:      v.GetDuration("ANSWER_TIMEOUT"),
			MaxRetries:   v.GetInt("ANSWER_MAX_RETRIES"),
			RetryBackoff: v.GetDuration("ANSWER_RETRY_BACKOFF"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Limit: RateLimitConfig{
			Enabled:        v.GetBool("RATE_LIMIT_ENABLED"),
			Capacity:       v.GetInt("RATE_LIMIT_CAPACITY"),
			RefillInterval: v.GetDuration("RATE_LIMIT_REFILL_INTERVAL"),
			TTL:            v.GetDuration("RATE_LIMIT_TTL"),
			Prefix:         v.GetString("RATE_LIMIT_PREFIX"),
		},
		Queue: QueueConfig{
			URL:   v.GetString("RABBITMQ_URL"),
			Queue: v.GetString("EVENTS_QUEUE"),
		},
		SeedHR: SeedUserConfig{
			Name:     v.GetString("SEED_HR_NAME"),
			Email:    v.GetString("SEED_HR_EMAIL"),
			Mobile:   v.GetString("SEED_HR_MOBILE"),
			Password: v.GetString("SEED_HR_PASSWORD"),
		},
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.JWT.Secret == "" {
		if cfg.IsRelease() {
			return nil, errors.New("JWT_SECRET is required in release mode")
		}
		cfg.JWT.Secret = devJWTSecret
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "mysql" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	if cfg.SeedHR.Email != "" && (cfg.SeedHR.Password == "" || cfg.SeedHR.Mobile == "") {
		return nil, errors.New("SEED_HR_MOBILE and SEED_HR_PASSWORD are required with SEED_HR_EMAIL")
	}
	if cfg.Limit.Capacity < 1 {
		cfg.Limit.Capacity = 1
	}
	if cfg.Limit.RefillInterval <= 0 {
		cfg.Limit.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.Limit.RefillInterval; cfg.Limit.TTL < minTTL {
		cfg.Limit.TTL = minTTL
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "helpdesk")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("JWT_ACCESS_EXPIRY", 15*time.Minute)
	v.SetDefault("JWT_REFRESH_EXPIRY", 168*time.Hour)
	v.SetDefault("BCRYPT_COST", 10)

	v.SetDefault("ANSWER_SERVICE_URL", "http://localhost:5011/ask_hr")
	v.SetDefault("ANSWER_TIMEOUT", 30*time.Second)
	v.SetDefault("ANSWER_MAX_RETRIES", 0)
	v.SetDefault("ANSWER_RETRY_BACKOFF", 500*time.Millisecond)

	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_CAPACITY", 20)
	v.SetDefault("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second)
	v.SetDefault("RATE_LIMIT_TTL", 10*time.Minute)
	v.SetDefault("RATE_LIMIT_PREFIX", "rl")

	v.SetDefault("SEED_HR_NAME", "HR Admin")

	v.SetDefault("EVENTS_QUEUE", "helpdesk.events")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
}

// IsRelease reports whether the service runs with production settings
func (c *Config) IsRelease() bool {
	return c.GinMode == "release" || c.Env == "production"
}

// DSN builds the driver specific connection string unless DATABASE_URL is set
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == "mysql" {
		auth := d.User
		if d.Password != "" {
			auth = d.User + ":" + d.Password
		}
		return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC", auth, d.Host, d.Port, d.Name)
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
