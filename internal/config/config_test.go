package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"SERVER_ADDR", "SERVER_PORT", "DEV_MODE",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"SESSION_SIGNING_SECRET", "SESSION_TTL", "ACCESS_TOKEN_TTL", "REFRESH_GRACE",
		"SESSION_CODE_LENGTH", "SESSION_CODE_ALPHABET",
		"API_LIMIT", "API_LIMIT_WINDOW", "RELAY_LIMIT", "RELAY_LIMIT_WINDOW",
		"EDGE_REQUESTS_PER_MINUTE", "PUBSUB_URL", "PUBSUB_SECRET",
		"CORS_ALLOWED_ORIGINS", "MAX_REQUEST_BODY_SIZE",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("SESSION_SIGNING_SECRET", "test-secret-key")
	defer os.Unsetenv("SESSION_SIGNING_SECRET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerAddr != "0.0.0.0" {
		t.Errorf("ServerAddr = %q, want %q", cfg.ServerAddr, "0.0.0.0")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, time.Hour)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("TokenTTL = %v, want %v", cfg.TokenTTL, 30*time.Minute)
	}
	if cfg.RefreshGrace != 30*time.Minute {
		t.Errorf("RefreshGrace = %v, want %v", cfg.RefreshGrace, 30*time.Minute)
	}
	if cfg.CodeLength != 5 {
		t.Errorf("CodeLength = %d, want 5", cfg.CodeLength)
	}
	if cfg.APILimit != 100 || cfg.APILimitWindow != 5*time.Minute {
		t.Errorf("API limit = %d/%v, want 100/5m", cfg.APILimit, cfg.APILimitWindow)
	}
	if cfg.RelayLimit != 2 || cfg.RelayLimitWindow != 100*time.Second {
		t.Errorf("relay limit = %d/%v, want 2/100s", cfg.RelayLimit, cfg.RelayLimitWindow)
	}
	if cfg.HasRedis() {
		t.Error("HasRedis() = true with no REDIS_ADDR")
	}
}

func TestLoad_RequiredSigningSecret(t *testing.T) {
	clearEnv(t)

	if _, err := Load(); err == nil {
		t.Error("Load should fail when SESSION_SIGNING_SECRET is not set")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	os.Setenv("SESSION_SIGNING_SECRET", "custom-secret")
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("REDIS_ADDR", "localhost:6379")
	os.Setenv("SESSION_TTL", "2h")
	os.Setenv("RELAY_LIMIT", "5")
	os.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want 9090", cfg.ServerPort)
	}
	if !cfg.HasRedis() || cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, want localhost:6379", cfg.RedisAddr)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %v, want 2h", cfg.SessionTTL)
	}
	if cfg.RelayLimit != 5 {
		t.Errorf("RelayLimit = %d, want 5", cfg.RelayLimit)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != want[0] || cfg.CORSAllowedOrigins[1] != want[1] {
		t.Errorf("CORSAllowedOrigins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero code length", "SESSION_CODE_LENGTH", "0"},
		{"single-char alphabet", "SESSION_CODE_ALPHABET", "a"},
		{"zero api limit", "API_LIMIT", "0"},
		{"negative relay limit", "RELAY_LIMIT", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			os.Setenv("SESSION_SIGNING_SECRET", "test-secret")
			os.Setenv(tt.key, tt.value)
			defer clearEnv(t)

			if _, err := Load(); err == nil {
				t.Errorf("Load accepted %s=%s", tt.key, tt.value)
			}
		})
	}
}
