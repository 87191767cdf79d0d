package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from the environment.
type Config struct {
	Addr string

	// DatabaseURL selects the postgres stores; when empty the server runs
	// on in-memory stores, which is enough for local development.
	DatabaseURL string

	// RedisURL backs the live latest-position state; optional.
	RedisURL string

	// KafkaBrokers and AlertsTopic configure the geofence alert publisher;
	// when no brokers are set alerts are logged and dropped.
	KafkaBrokers []string
	AlertsTopic  string

	// RestrictionsURL points at the dealership restrictions service.
	RestrictionsURL string
	RestrictionsTTL time.Duration

	// AlertQueueSize bounds the dispatcher channel.
	AlertQueueSize int
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:            getenv("TESTDRIVE_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		AlertsTopic:     getenv("ALERTS_TOPIC", "testdrive.geofence-alerts"),
		RestrictionsURL: getenv("RESTRICTIONS_URL", "http://localhost:8081/api/restricciones"),
		RestrictionsTTL: getDuration("RESTRICTIONS_TTL", 5*time.Minute),
		AlertQueueSize:  getInt("ALERT_QUEUE_SIZE", 256),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
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

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
