// Package config builds runtime configuration from environment variables so
// main stays lean. Every external dependency is optional: unset connection
// settings fall back to in-memory implementations.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	AdminSubject  string

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Oracle   OracleConfig
	Custody  CustodyConfig
}

// PostgresConfig selects the PostgreSQL-backed stores when DSN is set.
type PostgresConfig struct {
	DSN string
}

// RedisConfig selects the Redis-backed pending registry when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig selects the Kafka event publisher when brokers are set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// OracleConfig seeds the administrative oracle settings at startup. The
// administrator can replace every field at runtime.
type OracleConfig struct {
	Endpoint       string
	SubscriptionID string
	GasLimit       uint64
}

// CustodyConfig tunes the core service. PendingTTL of zero disables the
// expiry sweeper and preserves unbounded waits for oracle callbacks.
type CustodyConfig struct {
	PendingTTL    time.Duration
	SweepInterval time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("VAULTGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("VAULTGATE_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	adminSubject := os.Getenv("VAULTGATE_ADMIN_SUBJECT")
	if adminSubject == "" {
		adminSubject = "vaultgate-admin"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		AdminSubject:  adminSubject,
		Postgres: PostgresConfig{
			DSN: os.Getenv("VAULTGATE_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("VAULTGATE_REDIS_URL"),
			PoolSize:     envInt("VAULTGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("VAULTGATE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("VAULTGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("VAULTGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("VAULTGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: envList("VAULTGATE_KAFKA_BROKERS"),
			Topic:   envDefault("VAULTGATE_KAFKA_TOPIC", "vaultgate.events"),
		},
		Oracle: OracleConfig{
			Endpoint:       os.Getenv("VAULTGATE_ORACLE_ENDPOINT"),
			SubscriptionID: os.Getenv("VAULTGATE_ORACLE_SUBSCRIPTION_ID"),
			GasLimit:       envUint("VAULTGATE_ORACLE_GAS_LIMIT", 300_000),
		},
		Custody: CustodyConfig{
			PendingTTL:    envDuration("VAULTGATE_PENDING_TTL", 0),
			SweepInterval: envDuration("VAULTGATE_SWEEP_INTERVAL", time.Minute),
		},
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
