package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr               string        `yaml:"addr"`
	Environment        string        `yaml:"env"`
	DatabaseURL        string        `yaml:"database_url"`
	CachePath          string        `yaml:"cache_path"`
	DirectoryBaseURL   string        `yaml:"directory_base_url"`
	DirectoryTimeout   time.Duration `yaml:"directory_timeout"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	MaxBodyBytes       int64         `yaml:"max_body_bytes"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
	MetricsEnabled     bool          `yaml:"metrics_enabled"`
	RunMigrations      bool          `yaml:"run_migrations"`
	MigrationsDir      string        `yaml:"migrations_dir"`
	CacheEncryptionKey string        `yaml:"cache_encryption_key"`
	CacheRetention     time.Duration `yaml:"cache_retention"`
	CacheSweepInterval time.Duration `yaml:"cache_sweep_interval"`
}

func Defaults() Config {
	return Config{
		Addr:               ":8080",
		Environment:        "development",
		CachePath:          "data/directory-cache.db",
		DirectoryTimeout:   10 * time.Second,
		CORSAllowedOrigins: []string{"*"},
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 60,
		MetricsEnabled:     true,
		RunMigrations:      true,
		MigrationsDir:      "migrations",
		CacheRetention:     720 * time.Hour,
		CacheSweepInterval: 6 * time.Hour,
	}
}

// Load reads an optional .env file, then the YAML file named by CONFIG_FILE, then the
// process environment. Later sources win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fileCfg, err := LoadFile(path, cfg)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg
	}
	return FromEnv(cfg), nil
}

// LoadFile overlays the YAML document at path onto base.
func LoadFile(path string, base Config) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func FromEnv(base Config) Config {
	return Config{
		Addr:               getEnv("APP_ADDR", base.Addr),
		Environment:        getEnv("APP_ENV", base.Environment),
		DatabaseURL:        getEnv("DATABASE_URL", base.DatabaseURL),
		CachePath:          getEnv("CACHE_PATH", base.CachePath),
		DirectoryBaseURL:   getEnv("DIRECTORY_BASE_URL", base.DirectoryBaseURL),
		DirectoryTimeout:   getEnvDuration("DIRECTORY_TIMEOUT", base.DirectoryTimeout),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", base.CORSAllowedOrigins),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", int(base.MaxBodyBytes))),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", base.RateLimitPerMinute),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", base.MetricsEnabled),
		RunMigrations:      getEnvBool("RUN_MIGRATIONS", base.RunMigrations),
		MigrationsDir:      getEnv("MIGRATIONS_DIR", base.MigrationsDir),
		CacheEncryptionKey: getEnv("CACHE_ENCRYPTION_KEY", base.CacheEncryptionKey),
		CacheRetention:     getEnvDuration("CACHE_RETENTION", base.CacheRetention),
		CacheSweepInterval: getEnvDuration("CACHE_SWEEP_INTERVAL", base.CacheSweepInterval),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DirectoryBaseURL) == "" {
		return fmt.Errorf("DIRECTORY_BASE_URL is required")
	}
	if u, err := url.Parse(c.DirectoryBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("DIRECTORY_BASE_URL must be an absolute URL")
	}
	if strings.TrimSpace(c.CachePath) == "" {
		return fmt.Errorf("CACHE_PATH is required")
	}
	if c.DirectoryTimeout <= 0 {
		return fmt.Errorf("DIRECTORY_TIMEOUT must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.CacheRetention <= 0 {
		return fmt.Errorf("CACHE_RETENTION must be positive")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.CacheEncryptionKey) == "" {
			return fmt.Errorf("CACHE_ENCRYPTION_KEY is required in production")
		}
		for _, origin := range c.CORSAllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ALLOWED_ORIGINS must list explicit origins in production")
			}
		}
	}
	return nil
}

func (c Config) PersistenceEnabled() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}
