// Package config builds runtime configuration from the environment so main
// stays lean. No process-wide singleton: the config object is passed into
// every flow at call time.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	stringsutil "eventdesk/pkg/platform/strings"
)

// Server captures the full service configuration.
type Server struct {
	Addr              string
	PostgresDSN       string
	ExternalSourceDSN string
	MediaBaseURL      string
	JWTSigningKey     string
	Redis             RedisConfig
	Kafka             KafkaConfig
}

// RedisConfig holds cache connection settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds audit sink settings. No brokers disables the sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("EVENTDESK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	mediaBase := os.Getenv("EVENTDESK_MEDIA_BASE_URL")
	if mediaBase == "" {
		mediaBase = "https://media.eventdesk.local/uploads"
	}

	jwtSigningKey := os.Getenv("EVENTDESK_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("EVENTDESK_KAFKA_TOPIC")
	if topic == "" {
		topic = "eventdesk.audit"
	}

	return Server{
		Addr:              addr,
		PostgresDSN:       os.Getenv("EVENTDESK_POSTGRES_DSN"),
		ExternalSourceDSN: os.Getenv("EVENTDESK_EXTERNAL_SOURCE_DSN"),
		MediaBaseURL:      mediaBase,
		JWTSigningKey:     jwtSigningKey,
		Redis: RedisConfig{
			URL:          os.Getenv("EVENTDESK_REDIS_URL"),
			PoolSize:     envInt("EVENTDESK_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("EVENTDESK_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("EVENTDESK_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("EVENTDESK_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("EVENTDESK_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: envList("EVENTDESK_KAFKA_BROKERS"),
			Topic:   topic,
		},
	}
}

func envInt(key string, def int) int {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	return stringsutil.DedupeAndTrim(strings.Split(raw, ","))
}
