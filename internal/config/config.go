package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Store     StoreConfig
	DB        DBConfig
	Redis     RedisConfig
	Clicks    ClickConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Port     string
	BaseURL  string
	LogLevel string
}

type StoreConfig struct {
	Backend string // file | postgres
	DataDir string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a shared Redis link cache is configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type ClickConfig struct {
	BatchSize  int
	FlushDelay time.Duration
	Buffer     int
}

type AuthConfig struct {
	APIKeys map[string]string // API key -> customer ID
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile reads configuration from an env-style file (optional) and the environment.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_BACKEND", BackendFile)
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("CLICK_BATCH_SIZE", 10)
	v.SetDefault("CLICK_FLUSH_DELAY", 5*time.Second)
	v.SetDefault("CLICK_BUFFER", 100)

	if err := v.ReadInConfig(); err != nil {
		// .env необязателен: в контейнере всё приходит через переменные окружения
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var cfg Config
	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.BaseURL = strings.TrimRight(v.GetString("APP_BASE_URL"), "/")
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:" + cfg.App.Port
	}
	cfg.App.LogLevel = v.GetString("LOG_LEVEL")

	cfg.Store.Backend = strings.ToLower(v.GetString("STORE_BACKEND"))
	cfg.Store.DataDir = v.GetString("DATA_DIR")
	if cfg.Store.Backend != BackendFile && cfg.Store.Backend != BackendPostgres {
		return nil, errors.New("STORE_BACKEND must be file or postgres")
	}

	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	if cfg.Redis.Host != "" && cfg.Redis.Port == "" {
		cfg.Redis.Port = "6379"
	}

	cfg.Clicks.BatchSize = v.GetInt("CLICK_BATCH_SIZE")
	cfg.Clicks.FlushDelay = v.GetDuration("CLICK_FLUSH_DELAY")
	cfg.Clicks.Buffer = v.GetInt("CLICK_BUFFER")

	// Auth config - parse API keys from comma-separated string
	// Format: key1:customerId1,key2:customerId2
	cfg.Auth.APIKeys = parseAPIKeys(v.GetString("API_KEYS"))

	// Rate limit config
	cfg.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = v.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 20
	}

	return &cfg, nil
}

// parseAPIKeys parses comma-separated API keys in format "key1:customer1,key2:customer2"
func parseAPIKeys(raw string) map[string]string {
	keys := make(map[string]string)
	if raw == "" {
		return keys
	}

	pairs := strings.Split(raw, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) == 2 {
			keys[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	return keys
}

