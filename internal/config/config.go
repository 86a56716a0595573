// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings for the orchestrator process.
// Values come from environment variables (a .env file is auto-loaded
// by cmd/server via godotenv).
type Config struct {
	Port string

	// NATSUrl is the address of the message bus.
	NATSUrl string

	// RedisAddr/RedisDB configure the audit queue client.
	RedisAddr string
	RedisDB   int

	// DatabaseURL is the Postgres DSN for lobby audit persistence.
	// Empty disables persistence entirely.
	DatabaseURL string

	// ZoneID and TransportURL identify this deployment in the
	// orchestrator.zone_heartbeat it publishes.
	ZoneID       string
	TransportURL string

	// GracePeriod is how long a disconnected player may reconnect before
	// being evicted from their match.
	GracePeriod time.Duration

	// ZoneHeartbeatInterval is how often the orchestrator announces itself.
	ZoneHeartbeatInterval time.Duration

	AuditQueueName string
}

// Load reads the full configuration from the environment.
func Load() Config {
	return Config{
		Port:                  getEnv("PORT", "8080"),
		NATSUrl:               getEnv("NATS_URL", "nats://localhost:4222"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		ZoneID:                getEnv("ZONE_ID", "zone-local"),
		TransportURL:          getEnv("TRANSPORT_URL", "ws://localhost:8080"),
		GracePeriod:           getEnvDuration("GRACE_PERIOD", 60*time.Second),
		ZoneHeartbeatInterval: getEnvDuration("ZONE_HEARTBEAT_INTERVAL", 5*time.Second),
		AuditQueueName:        getEnv("AUDIT_QUEUE_NAME", "arena_match_events"),
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// getEnvDuration parses an environment variable with time.ParseDuration,
// else returns the default.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
