package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// PostgresDSN selects the durable store; empty means in-memory.
	PostgresDSN string

	// MintRateLimit / MintRateWindow guard the open mint endpoint per IP.
	MintRateLimit    int
	MintRateWindow   time.Duration
	RateLimitEnabled bool

	// EventBuffer sizes the notification channel.
	EventBuffer int

	Redis RedisConfig
	Kafka KafkaConfig

	// Tracing selects the span exporter: "none", "stdout" or "otlp".
	Tracing      string
	OTLPEndpoint string
}

// RedisConfig configures the optional redis stream sink.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

// KafkaConfig configures the optional kafka sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:             envOr("TRACELOT_ADDR", ":8080"),
		JWTSigningKey:    envOr("TRACELOT_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:        envOr("TRACELOT_JWT_ISSUER", "tracelot"),
		JWTAudience:      envOr("TRACELOT_JWT_AUDIENCE", "tracelot"),
		PostgresDSN:      os.Getenv("TRACELOT_POSTGRES_DSN"),
		MintRateLimit:    envInt("TRACELOT_MINT_RATE_LIMIT", 60),
		MintRateWindow:   envDuration("TRACELOT_MINT_RATE_WINDOW", time.Minute),
		RateLimitEnabled: os.Getenv("TRACELOT_RATE_LIMIT_DISABLED") != "true",
		EventBuffer:      envInt("TRACELOT_EVENT_BUFFER", 1024),
		Tracing:          envOr("TRACELOT_TRACING", "none"),
		OTLPEndpoint:     envOr("TRACELOT_OTLP_ENDPOINT", "localhost:4317"),
	}

	cfg.Redis = RedisConfig{
		Addr:     os.Getenv("TRACELOT_REDIS_ADDR"),
		Password: os.Getenv("TRACELOT_REDIS_PASSWORD"),
		DB:       envInt("TRACELOT_REDIS_DB", 0),
		Stream:   envOr("TRACELOT_REDIS_STREAM", "tracelot:events"),
	}

	if brokers := os.Getenv("TRACELOT_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka = KafkaConfig{
			Brokers: splitAndTrim(brokers),
			Topic:   envOr("TRACELOT_KAFKA_TOPIC", "tracelot.events"),
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
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

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
