// Package config loads lake settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds every runtime setting. CLI flags override fields after Load.
type Config struct {
	Store    StoreConfig
	Lake     LakeConfig
	Feed     FeedConfig
	Vendors  VendorConfig
	Server   ServerConfig
	Worker   WorkerConfig
	Log      LogConfig
	RedisURL string // empty disables the redis lock and queue
	// IndexPath is the bleve directory; empty disables full-text search
	IndexPath string
}

type StoreConfig struct {
	Backend     string
	DBPath      string
	DatabaseURL string
}

type LakeConfig struct {
	TTL         time.Duration
	LockWait    time.Duration
	AnswerLimit int
}

type FeedConfig struct {
	BaseURL          string
	Timeout          time.Duration
	FetchConcurrency int
}

type VendorConfig struct {
	File  string
	Names []string
}

type ServerConfig struct {
	Port      int
	JWTSecret string
}

type WorkerConfig struct {
	Concurrency     int
	RefreshEnabled  bool
	RefreshInterval time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads the environment into a Config. Each envFile that exists is
// loaded first without overriding variables already set; a missing
// default .env is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Store: StoreConfig{
			Backend:     strings.ToLower(getEnv("STORE_BACKEND", StoreSQLite)),
			DBPath:      getEnv("DB_PATH", "releasetrain.db"),
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		Lake: LakeConfig{
			TTL:         getEnvDuration("LAKE_TTL", 6*time.Hour),
			LockWait:    getEnvDuration("LOCK_WAIT", 5*time.Minute),
			AnswerLimit: getEnvInt("ANSWER_LIMIT", 12),
		},
		Feed: FeedConfig{
			BaseURL:          getEnv("FEED_BASE_URL", "https://releasetrain.io/api"),
			Timeout:          getEnvDuration("FEED_TIMEOUT", 15*time.Second),
			FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 2),
		},
		Vendors: VendorConfig{
			File:  getEnv("VENDORS_FILE", ""),
			Names: getEnvList("VENDORS"),
		},
		Server: ServerConfig{
			Port:      getEnvInt("PORT", 8080),
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Worker: WorkerConfig{
			Concurrency:     getEnvInt("WORKER_CONCURRENCY", 1),
			RefreshEnabled:  getEnvBool("REFRESH_ENABLED", true),
			RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 30*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		RedisURL:  getEnv("REDIS_URL", ""),
		IndexPath: getEnv("INDEX_PATH", ""),
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a build.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case StoreSQLite:
		if c.Store.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite store"))
		}
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %s or %s, got %q", StoreSQLite, StorePostgres, c.Store.Backend))
	}
	if c.Lake.TTL <= 0 {
		errs = append(errs, errors.New("LAKE_TTL must be positive"))
	}
	if c.Lake.LockWait < 0 {
		errs = append(errs, errors.New("LOCK_WAIT must not be negative"))
	}
	if c.Lake.AnswerLimit <= 0 {
		errs = append(errs, errors.New("ANSWER_LIMIT must be positive"))
	}
	if c.Feed.BaseURL == "" {
		errs = append(errs, errors.New("FEED_BASE_URL is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Server.Port))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "6h") or bare seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
