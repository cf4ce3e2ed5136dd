package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gallan_chat/internal/domain"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	JWT         JWTConfig
	Delivery    DeliveryConfig
	NATS        NATSConfig
	Starters    StartersConfig
	WebSocket   WebSocketConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port           int
	Host           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type StorageConfig struct {
	Backend string
}

type DatabaseConfig struct {
	DSN             string
	MaxConnections  int
	MaxIdleTime     time.Duration
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	PerMinute int
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// DeliveryPolicy decides the initial recipient status of a new message.
type DeliveryPolicy string

const (
	// DeliveryConnectivity marks a recipient delivered only if subscribed to the chat right now.
	DeliveryConnectivity DeliveryPolicy = "connectivity"
	// DeliveryUniform marks every recipient delivered at creation.
	DeliveryUniform DeliveryPolicy = "uniform"
)

type DeliveryConfig struct {
	Policy DeliveryPolicy
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

type StartersConfig struct {
	OpenAIAPIKey   string
	Model          string
	RecentMessages int
	Timeout        time.Duration
	Fallback       domain.FallbackStarters
}

type WebSocketConfig struct {
	SendBuffer int
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", StorageMemory),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", ""),
			MaxConnections:  getEnvAsInt("DATABASE_MAX_CONNECTIONS", 25),
			MaxIdleTime:     getEnvAsDuration("DATABASE_MAX_IDLE_TIME", 5*time.Minute),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
			TTL:    getEnvAsDuration("JWT_TTL", 24*time.Hour),
			Issuer: getEnv("JWT_ISSUER", "gallan-chat"),
		},
		Delivery: DeliveryConfig{
			Policy: DeliveryPolicy(getEnv("DELIVERY_POLICY", string(DeliveryConnectivity))),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "chat.events"),
		},
		Starters: StartersConfig{
			OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o"),
			RecentMessages: getEnvAsInt("STARTERS_RECENT_MESSAGES", 10),
			Timeout:        getEnvAsDuration("STARTERS_TIMEOUT", 10*time.Second),
			Fallback:       domain.DefaultFallbackStarters,
		},
		WebSocket: WebSocketConfig{
			SendBuffer: getEnvAsInt("WS_SEND_BUFFER", 256),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if path := getEnv("STARTERS_FALLBACK_FILE", ""); path != "" {
		fallback, err := loadFallbackStarters(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load fallback starters: %w", err)
		}
		cfg.Starters.Fallback = fallback
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret must be set")
	}
	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Delivery.Policy {
	case DeliveryConnectivity, DeliveryUniform:
	default:
		return fmt.Errorf("unknown delivery policy %q", c.Delivery.Policy)
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket send buffer must be positive")
	}
	return nil
}

func loadFallbackStarters(path string) (domain.FallbackStarters, error) {
	var f domain.FallbackStarters
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, err
	}
	if len(f.Common)+len(f.Regular)+len(f.Scholar) == 0 {
		return f, fmt.Errorf("fallback starters file %s is empty", path)
	}
	return f, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
