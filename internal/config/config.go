package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env                string
	HTTPAddr           string
	DatabaseURL        string
	RedisURL           string
	RabbitMQURL        string
	RabbitMQWorkerMode string
	CorsAllowedOrigins []string
	Timezone           string

	SeriesCacheTTL           time.Duration
	ReconcilePageSize        int
	ReconcileVerify          bool
	PerPersonRevenueEstimate string
	RPCBreakerTimeout        time.Duration
	WSHeartbeatInterval      time.Duration

	ObjectStoreEndpoint        string
	ObjectStoreRegion          string
	ObjectStoreAccessKeyID     string
	ObjectStoreSecretAccessKey string
	ObjectStoreBucket          string
	PaymentQueuePrefix         string
}

func Load() Config {
	cfg := Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8090"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RabbitMQWorkerMode: getEnv("RABBITMQ_WORKER_MODE", "daemon"),
		CorsAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		Timezone:           getEnv("APP_TIMEZONE", "America/Sao_Paulo"),

		SeriesCacheTTL:           getEnvDuration("SERIES_CACHE_TTL", 5*time.Minute),
		ReconcilePageSize:        int(getEnvInt64("RECONCILE_PAGE_SIZE", 1000)),
		ReconcileVerify:          getEnvBool("RECONCILE_VERIFY", false),
		PerPersonRevenueEstimate: getEnv("PER_PERSON_REVENUE_ESTIMATE", "100.00"),
		RPCBreakerTimeout:        getEnvDuration("RPC_BREAKER_TIMEOUT", time.Minute),
		WSHeartbeatInterval:      getEnvDuration("WS_HEARTBEAT_INTERVAL", 30*time.Second),

		// S3-compatible store for the scheduled payment queue
		ObjectStoreEndpoint:        getEnvFirst([]string{"OBJECT_STORE_ENDPOINT", "R2_S3_ENDPOINT"}, ""),
		ObjectStoreRegion:          getEnvFirst([]string{"OBJECT_STORE_REGION", "R2_REGION"}, "auto"),
		ObjectStoreAccessKeyID:     getEnvFirst([]string{"OBJECT_STORE_ACCESS_KEY_ID", "R2_ACCESS_KEY_ID"}, ""),
		ObjectStoreSecretAccessKey: getEnvFirst([]string{"OBJECT_STORE_SECRET_ACCESS_KEY", "R2_SECRET_ACCESS_KEY"}, ""),
		ObjectStoreBucket:          getEnvFirst([]string{"OBJECT_STORE_BUCKET", "R2_BUCKET"}, ""),
		PaymentQueuePrefix:         getEnv("PAYMENT_QUEUE_PREFIX", "payment-queue"),
	}

	if cfg.ReconcilePageSize <= 0 {
		cfg.ReconcilePageSize = 1000
	}
	return cfg
}

// ObjectStoreEnabled reports whether enough settings exist to reach S3.
func (c Config) ObjectStoreEnabled() bool {
	return c.ObjectStoreBucket != "" && c.ObjectStoreAccessKeyID != "" && c.ObjectStoreSecretAccessKey != ""
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvFirst(keys []string, fallback string) string {
	for _, k := range keys {
		value := strings.TrimSpace(os.Getenv(k))
		if value != "" {
			return value
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
