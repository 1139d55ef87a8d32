package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DB_USERNAME string
	DB_PASSWORD string
	DB_HOST     string
	DB_PORT     string
	DB_NAME     string
	DISABLE_TLS string

	// Redis backs the query cache, the quota limiter and the analysis job queue
	REDIS_HOST     string
	REDIS_PORT     string
	REDIS_USERNAME string
	REDIS_PASSWORD string

	// ClickHouse configuration for the indicator warehouse
	CLICKHOUSE_HOST     string
	CLICKHOUSE_PORT     int
	CLICKHOUSE_DATABASE string
	CLICKHOUSE_USERNAME string
	CLICKHOUSE_PASSWORD string
	CLICKHOUSE_USE_TLS  bool

	JWT_SECRET string

	HTTP_ADDR string

	// Analysis worker tuning
	ANALYSIS_WORKERS      int
	ANALYSIS_SOFT_TIMEOUT time.Duration
	ANALYSIS_HARD_TIMEOUT time.Duration
	ANALYSIS_MAX_RETRIES  int
	ANALYSIS_RETRY_DELAY  time.Duration

	QUERY_CACHE_TTL time.Duration

	AUDIT_RETENTION time.Duration

	// Otel
	OTEL_EXPORTER_OTLP_ENDPOINT string
}

func ReadConfig() *Config {
	clickhousePort := 8123
	if portStr := os.Getenv("CLICKHOUSE_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			clickhousePort = port
		}
	}

	return &Config{
		DB_USERNAME: os.Getenv("DB_USERNAME"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_NAME:     os.Getenv("DB_NAME"),
		DISABLE_TLS: os.Getenv("DISABLE_TLS"),

		REDIS_HOST:     GetEnvOrDefault("REDIS_HOST", "localhost"),
		REDIS_PORT:     GetEnvOrDefault("REDIS_PORT", "6379"),
		REDIS_USERNAME: os.Getenv("REDIS_USERNAME"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),

		CLICKHOUSE_HOST:     GetEnvOrDefault("CLICKHOUSE_HOST", "localhost"),
		CLICKHOUSE_PORT:     clickhousePort,
		CLICKHOUSE_DATABASE: GetEnvOrDefault("CLICKHOUSE_DATABASE", "cais"),
		CLICKHOUSE_USERNAME: GetEnvOrDefault("CLICKHOUSE_USERNAME", "default"),
		CLICKHOUSE_PASSWORD: os.Getenv("CLICKHOUSE_PASSWORD"),
		CLICKHOUSE_USE_TLS:  os.Getenv("CLICKHOUSE_USE_TLS") == "true",

		JWT_SECRET: os.Getenv("JWT_SECRET"),

		HTTP_ADDR: GetEnvOrDefault("HTTP_ADDR", "0.0.0.0:6060"),

		ANALYSIS_WORKERS:      getEnvInt("ANALYSIS_WORKERS", 4),
		ANALYSIS_SOFT_TIMEOUT: getEnvDuration("ANALYSIS_SOFT_TIMEOUT", 15*time.Minute),
		ANALYSIS_HARD_TIMEOUT: getEnvDuration("ANALYSIS_HARD_TIMEOUT", 20*time.Minute),
		ANALYSIS_MAX_RETRIES:  getEnvInt("ANALYSIS_MAX_RETRIES", 3),
		ANALYSIS_RETRY_DELAY:  getEnvDuration("ANALYSIS_RETRY_DELAY", 30*time.Second),

		QUERY_CACHE_TTL: getEnvDuration("QUERY_CACHE_TTL", time.Hour),

		AUDIT_RETENTION: getEnvDuration("AUDIT_RETENTION", 90*24*time.Hour),

		OTEL_EXPORTER_OTLP_ENDPOINT: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
