package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int
	DevMode    bool

	// Shared store. An empty RedisAddr means no shared store; in dev
	// mode an in-process store is used instead.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Sessions and credentials
	SigningSecret string
	SessionTTL    time.Duration
	TokenTTL      time.Duration
	RefreshGrace  time.Duration
	CodeLength    int
	CodeAlphabet  string

	// Distributed rate limits
	APILimit         int
	APILimitWindow   time.Duration
	RelayLimit       int
	RelayLimitWindow time.Duration

	// Edge (per-IP, in-process) rate limit
	EdgeRequestsPerMinute int

	// Publish sink
	PubSubURL    string
	PubSubSecret string

	// HTTP
	CORSAllowedOrigins []string
	MaxRequestBodySize int64
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		DevMode:    getEnvBool("DEV_MODE", false),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SigningSecret: getEnv("SESSION_SIGNING_SECRET", ""),
		SessionTTL:    getEnvDuration("SESSION_TTL", time.Hour),
		TokenTTL:      getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		RefreshGrace:  getEnvDuration("REFRESH_GRACE", 30*time.Minute),
		CodeLength:    getEnvInt("SESSION_CODE_LENGTH", 5),
		CodeAlphabet:  getEnv("SESSION_CODE_ALPHABET", "abcdefghijklmnopqrstuwxyz0123456789-"),

		APILimit:         getEnvInt("API_LIMIT", 100),
		APILimitWindow:   getEnvDuration("API_LIMIT_WINDOW", 5*time.Minute),
		RelayLimit:       getEnvInt("RELAY_LIMIT", 2),
		RelayLimitWindow: getEnvDuration("RELAY_LIMIT_WINDOW", 100*time.Second),

		EdgeRequestsPerMinute: getEnvInt("EDGE_REQUESTS_PER_MINUTE", 300),

		PubSubURL:    getEnv("PUBSUB_URL", ""),
		PubSubSecret: getEnv("PUBSUB_SECRET", ""),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 64*1024)),
	}

	// Validate required fields
	if cfg.SigningSecret == "" {
		return nil, fmt.Errorf("SESSION_SIGNING_SECRET is required")
	}
	if cfg.CodeLength <= 0 {
		return nil, fmt.Errorf("SESSION_CODE_LENGTH must be positive")
	}
	if len(cfg.CodeAlphabet) < 2 {
		return nil, fmt.Errorf("SESSION_CODE_ALPHABET needs at least two characters")
	}
	if cfg.APILimit <= 0 || cfg.RelayLimit <= 0 {
		return nil, fmt.Errorf("rate limit thresholds must be positive")
	}

	return cfg, nil
}

// HasRedis returns true if a shared store is configured.
func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
