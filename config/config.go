package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"food-marketplace-api/eta"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// ETA modes decide how an order's initial estimate is computed
const (
	ETAModeFlat      = "flat"
	ETAModeEstimator = "estimator"
)

type Config struct {
	Port    string
	GinMode string

	DBDriver    string
	DatabaseDSN string

	JWTSecret []byte
	TokenTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	RabbitURL      string
	RabbitExchange string

	ETAMode      string
	FlatEstimate time.Duration
	DeliveryFee  decimal.Decimal

	LogLevel  string
	LogFormat string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads .env (if present) and then the process environment
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the environment only
func FromEnv() Config {
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", ""),
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DatabaseDSN:    getEnv("DATABASE_DSN", "food_delivery.db"),
		JWTSecret:      []byte(getEnv("JWT_SECRET", "food_delivery_super_secret_2024")),
		TokenTTL:       getDuration("TOKEN_TTL", 24*time.Hour),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		CacheTTL:       getDuration("CACHE_TTL", time.Minute),
		RabbitURL:      getEnv("RABBITMQ_URL", ""),
		RabbitExchange: getEnv("RABBITMQ_EXCHANGE", "orders_topic"),
		ETAMode:        strings.ToLower(getEnv("ETA_MODE", ETAModeFlat)),
		FlatEstimate:   getDuration("FLAT_ETA", eta.FlatEstimate),
		DeliveryFee:    getDecimal("DELIVERY_FEE", decimal.RequireFromString("1.00")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 20),
	}
	if cfg.ETAMode != ETAModeEstimator {
		cfg.ETAMode = ETAModeFlat
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return f
	}
	return fallback
}

func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if d, err := decimal.NewFromString(getEnv(key, "")); err == nil && !d.IsNegative() {
		return d.Round(2)
	}
	return fallback
}
