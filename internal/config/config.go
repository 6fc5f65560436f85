package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/fjod/hebec-shop/internal/storage"
)

type Config struct {
	Env                string
	LogLevel           string
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	APIBaseURL string
	APITimeout time.Duration

	Storage storage.Config

	CartIdleTTL       time.Duration
	CartSweepInterval time.Duration
	CheckoutIdleTTL   time.Duration

	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool

	KafkaBrokers []string
	KafkaTopic   string
	InstanceID   string
	EventBuffer  int

	LoginRatePerSecond float64
	LoginBurst         int
}

// Load reads the environment, after merging an optional .env file into it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	pgPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB

		APIBaseURL: strings.TrimRight(getEnv("HEBEC_API_URL", "http://localhost:8081/api"), "/"),
		APITimeout: getEnvDuration("HEBEC_API_TIMEOUT", 10*time.Second),

		Storage: storage.Config{
			Backend:       getEnv("STORAGE_BACKEND", storage.BackendMemory),
			KeyPrefix:     getEnv("STORAGE_KEY_PREFIX", "hebec"),
			TTL:           getEnvDuration("STORAGE_TTL", 30*24*time.Hour),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDBName:   getEnv("MONGO_DB_NAME", "storefront"),
			SQLitePath:    getEnv("SQLITE_PATH", "./storefront.db"),
			Postgres: storage.Credentials{
				Host:     getEnv("DB_HOST", "localhost"),
				Port:     pgPort,
				User:     getEnv("DB_USER", "postgres"),
				Password: getEnv("DB_PASSWORD", "postgres"),
				DBName:   getEnv("DB_NAME", "storefront"),
			},
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/storage/migrations"),
		},

		CartIdleTTL:       getEnvDuration("CART_IDLE_TTL", 30*time.Minute),
		CartSweepInterval: getEnvDuration("CART_SWEEP_INTERVAL", time.Minute),
		CheckoutIdleTTL:   getEnvDuration("CHECKOUT_IDLE_TTL", time.Hour),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		SecureCookies: getEnv("SECURE_COOKIES", "false") == "true",

		KafkaBrokers: splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "storefront-events"),
		InstanceID:   getEnv("INSTANCE_ID", uuid.NewString()),
		EventBuffer:  getEnvInt("EVENT_BUFFER", 1024),

		LoginRatePerSecond: getEnvFloat("LOGIN_RATE_PER_SECOND", 5),
		LoginBurst:         getEnvInt("LOGIN_BURST", 10),
	}

	if cfg.SessionSecret == "" {
		if cfg.Env == "production" {
			return nil, errors.New("SESSION_SECRET is required in production")
		}
		cfg.SessionSecret = "dev-only-session-secret"
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
