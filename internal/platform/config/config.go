package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the binaries need from the environment, so main
// stays lean.
type Config struct {
	Addr     string
	LogLevel string

	// PostgresDSN selects the postgres stores when non-empty; otherwise the
	// in-memory stores are used (development default).
	PostgresDSN string

	// RedisURL selects the Redis-backed rule lease when non-empty; otherwise
	// the in-process lease is used.
	RedisURL string

	// KafkaBrokers enables transfer-completed event publishing when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// StrictRecipients disables placeholder-account provisioning for unknown
	// recipient principals. Lenient resolution is the product default.
	StrictRecipients bool

	// DueCycleSchedule is the cron expression used by cmd/scheduler.
	DueCycleSchedule string

	// LeaseTTL bounds how long a rule stays claimed if a cycle dies mid-rule.
	LeaseTTL time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:             getenv("PAYCHAIN_ADDR", ":8080"),
		LogLevel:         getenv("PAYCHAIN_LOG_LEVEL", "info"),
		PostgresDSN:      os.Getenv("PAYCHAIN_POSTGRES_DSN"),
		RedisURL:         os.Getenv("PAYCHAIN_REDIS_URL"),
		KafkaTopic:       getenv("PAYCHAIN_KAFKA_TOPIC", "transfer_completed"),
		StrictRecipients: os.Getenv("PAYCHAIN_STRICT_RECIPIENTS") == "true",
		DueCycleSchedule: getenv("PAYCHAIN_DUE_CYCLE_SCHEDULE", "0 2 * * *"),
		LeaseTTL:         getduration("PAYCHAIN_LEASE_TTL", time.Minute),
	}
	if brokers := os.Getenv("PAYCHAIN_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
