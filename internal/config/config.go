package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	API          APIConfig
	Storage      StorageConfig
	Subscription SubscriptionConfig
	Payment      PaymentConfig
	Events       EventsConfig
	Tracing      TracingConfig
}

type AppConfig struct {
	Port               string `validate:"required"`
	ClientURL          string
	Environment        string
	LogFilePath        string
	HubLogFilePath     string
	CorsAllowedOrigins string
}

type APIConfig struct {
	BaseURL        string        `validate:"required,url"`
	RequestTimeout time.Duration `validate:"gt=0"`
	RateLimitRPS   float64       `validate:"gt=0"`
	RateLimitBurst int           `validate:"gte=1"`
}

type StorageConfig struct {
	Driver       string `validate:"oneof=memory redis postgres"`
	RedisURL     string `validate:"required_if=Driver redis"`
	PostgresDSN  string `validate:"required_if=Driver postgres"`
	SnapshotPath string
	Namespace    string
}

type SubscriptionConfig struct {
	CacheTTL          time.Duration `validate:"gt=0"`
	PendingPaymentTTL time.Duration `validate:"gt=0"`
	RefreshSchedule   string
	FreeLinksPerDay   int `validate:"gte=0"`
	RetryMax          int `validate:"gte=0"`
	RetryBaseDelay    time.Duration `validate:"gt=0"`
	RetryMaxDelay     time.Duration `validate:"gte=0"`
}

type PaymentConfig struct {
	IsProduction bool
}

type EventsConfig struct {
	NatsEnabled bool
	NatsURL     string `validate:"required_if=NatsEnabled true"`
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8088"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			HubLogFilePath:     getEnv("HUB_LOG_FILE_PATH", "logs/hub.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		API: APIConfig{
			BaseURL:        getEnv("API_BASE_URL", "http://localhost:3000"),
			RequestTimeout: getEnvAsDuration("API_REQUEST_TIMEOUT", 15*time.Second),
			RateLimitRPS:   getEnvAsFloat("API_RATE_LIMIT_RPS", 10),
			RateLimitBurst: getEnvAsInt("API_RATE_LIMIT_BURST", 20),
		},
		Storage: StorageConfig{
			Driver:       getEnv("STORAGE_DRIVER", "memory"),
			RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
			PostgresDSN:  getEnv("STORAGE_POSTGRES_DSN", ""),
			SnapshotPath: getEnv("STORAGE_SNAPSHOT_PATH", "data/session.json"),
			Namespace:    getEnv("STORAGE_NAMESPACE", "linkstride"),
		},
		Subscription: SubscriptionConfig{
			CacheTTL:          getEnvAsDuration("SUBSCRIPTION_CACHE_TTL", time.Hour),
			PendingPaymentTTL: getEnvAsDuration("PENDING_PAYMENT_TTL", time.Hour),
			RefreshSchedule:   getEnv("SUBSCRIPTION_REFRESH_SCHEDULE", "@every 15m"),
			FreeLinksPerDay:   getEnvAsInt("FREE_LINKS_PER_DAY", 3),
			RetryMax:          getEnvAsInt("RETRY_MAX", 3),
			RetryBaseDelay:    getEnvAsDuration("RETRY_BASE_DELAY", time.Second),
			RetryMaxDelay:     getEnvAsDuration("RETRY_MAX_DELAY", 0),
		},
		Payment: PaymentConfig{
			IsProduction: getEnvAsBool("MIDTRANS_IS_PRODUCTION", false),
		},
		Events: EventsConfig{
			NatsEnabled: getEnvAsBool("NATS_ENABLED", false),
			NatsURL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

// Validate checks the loaded values before anything is wired with them.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
