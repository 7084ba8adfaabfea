package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config - конфигурация приложения
type Config struct {
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis Config
	RedisAddr        string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass        string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	ResourceCacheTTL time.Duration `env:"RESOURCE_CACHE_TTL" envDefault:"5m"`

	// Webhook Config
	WebhookURL        string        `env:"WEBHOOK_URL"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`
	WebhookBaseDelay  time.Duration `env:"WEBHOOK_BASE_DELAY" envDefault:"1s"`

	// Identity collaborator
	JWTSecret string `env:"JWT_SECRET"`

	// Search defaults, applied when a query parameter is absent
	SearchDefaultMaxDistanceKm float64       `env:"SEARCH_DEFAULT_MAX_DISTANCE_KM" envDefault:"10"`
	SearchDefaultType          string        `env:"SEARCH_DEFAULT_TYPE"`
	SearchDefaultStatus        string        `env:"SEARCH_DEFAULT_STATUS"`
	SearchCacheTTL             time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"3s"`

	// Retries for idempotent reads
	ReadRetryMaxAttempts     int           `env:"READ_RETRY_MAX_ATTEMPTS" envDefault:"3"`
	ReadRetryInitialInterval time.Duration `env:"READ_RETRY_INITIAL_INTERVAL" envDefault:"100ms"`

	// Capacity audit listing
	CapacityListDefaultLimit int `env:"CAPACITY_LIST_DEFAULT_LIMIT" envDefault:"50"`
	CapacityListMaxLimit     int `env:"CAPACITY_LIST_MAX_LIMIT" envDefault:"200"`

	// Cron spec (with seconds) for the expired alert sweep
	AlertSweepSchedule string `env:"ALERT_SWEEP_SCHEDULE" envDefault:"0 */5 * * * *"`

	// Location acquisition (nearby CLI)
	FallbackLatitude  float64       `env:"FALLBACK_LATITUDE" envDefault:"12.2958"`
	FallbackLongitude float64       `env:"FALLBACK_LONGITUDE" envDefault:"76.6394"`
	LocationTimeout   time.Duration `env:"LOCATION_TIMEOUT" envDefault:"10s"`
}

// LoadConfig читает конфигурацию из окружения и необязательного .env файла
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		StorageDriver:              strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		DatabaseURL:                os.Getenv("DATABASE_URL"),
		HTTPPort:                   getEnv("HTTP_PORT", "8080"),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		RedisAddr:                  getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:                  os.Getenv("REDIS_PASSWORD"),
		RedisDB:                    getEnvAsInt("REDIS_DB", 0),
		ResourceCacheTTL:           getEnvAsDuration("RESOURCE_CACHE_TTL", 5*time.Minute),
		WebhookURL:                 os.Getenv("WEBHOOK_URL"),
		WebhookSecret:              os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout:             getEnvAsDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMaxRetries:          getEnvAsInt("WEBHOOK_MAX_RETRIES", 3),
		WebhookBaseDelay:           getEnvAsDuration("WEBHOOK_BASE_DELAY", time.Second),
		JWTSecret:                  os.Getenv("JWT_SECRET"),
		SearchDefaultMaxDistanceKm: getEnvAsFloat("SEARCH_DEFAULT_MAX_DISTANCE_KM", 10),
		SearchDefaultType:          os.Getenv("SEARCH_DEFAULT_TYPE"),
		SearchDefaultStatus:        os.Getenv("SEARCH_DEFAULT_STATUS"),
		SearchCacheTTL:             getEnvAsDuration("SEARCH_CACHE_TTL", 3*time.Second),
		ReadRetryMaxAttempts:       getEnvAsInt("READ_RETRY_MAX_ATTEMPTS", 3),
		ReadRetryInitialInterval:   getEnvAsDuration("READ_RETRY_INITIAL_INTERVAL", 100*time.Millisecond),
		CapacityListDefaultLimit:   getEnvAsInt("CAPACITY_LIST_DEFAULT_LIMIT", 50),
		CapacityListMaxLimit:       getEnvAsInt("CAPACITY_LIST_MAX_LIMIT", 200),
		AlertSweepSchedule:         getEnv("ALERT_SWEEP_SCHEDULE", "0 */5 * * * *"),
		FallbackLatitude:           getEnvAsFloat("FALLBACK_LATITUDE", 12.2958),
		FallbackLongitude:          getEnvAsFloat("FALLBACK_LONGITUDE", 76.6394),
		LocationTimeout:            getEnvAsDuration("LOCATION_TIMEOUT", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет обязательные настройки для выбранного драйвера хранилища
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required")
		}
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET environment variable is required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.SearchDefaultMaxDistanceKm <= 0 {
		return fmt.Errorf("SEARCH_DEFAULT_MAX_DISTANCE_KM must be positive")
	}
	if c.CapacityListDefaultLimit <= 0 || c.CapacityListMaxLimit < c.CapacityListDefaultLimit {
		return fmt.Errorf("capacity list limits are inconsistent")
	}
	return nil
}

// getEnv возвращает переменную окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
