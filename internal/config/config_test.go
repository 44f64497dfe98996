package config

import (
	"testing"
	"time"
)

func clearGatewayEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PROXY_API_KEY", "PORT", "REFRESH_TOKEN", "PROFILE_ARN", "KIRO_REGION",
		"KIRO_CREDS_FILE", "TOKEN_REFRESH_THRESHOLD", "MAX_RETRIES",
		"BASE_RETRY_DELAY", "FIRST_TOKEN_TIMEOUT", "FIRST_TOKEN_MAX_RETRIES",
		"STREAM_READ_TIMEOUT", "NON_STREAM_TIMEOUT", "SLOW_MODEL_TIMEOUT_MULTIPLIER",
		"TOOL_DESCRIPTION_MAX_LENGTH", "MODEL_CACHE_TTL", "DEFAULT_MAX_INPUT_TOKENS",
		"RATE_LIMIT_PER_MINUTE", "LOG_LEVEL", "ADMIN_TOKEN", "GATEWAY_DATA_DIR",
		"GATEWAY_DB_PATH", "COOLDOWN_AUTH_SECONDS", "COOLDOWN_RATE_LIMIT_BASE_SECONDS",
		"COOLDOWN_UPSTREAM_BASE_SECONDS", "REQUEST_IDLE_TIMEOUT",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearGatewayEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.KiroRegion != "us-east-1" {
		t.Errorf("KiroRegion = %q, want us-east-1", cfg.KiroRegion)
	}
	if cfg.FirstTokenTimeout != 120*time.Second {
		t.Errorf("FirstTokenTimeout = %s, want 120s", cfg.FirstTokenTimeout)
	}
	if cfg.DefaultMaxInputTokens != 200000 {
		t.Errorf("DefaultMaxInputTokens = %d, want 200000", cfg.DefaultMaxInputTokens)
	}
	if cfg.AdminToken != "" {
		t.Errorf("AdminToken = %q, want empty by default", cfg.AdminToken)
	}
}

func TestLoadInvalidNumericIsFatal(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("FIRST_TOKEN_TIMEOUT", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected Load() to return an error for a non-numeric env var")
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ADMIN_TOKEN", "secret-token")
	t.Setenv("COOLDOWN_AUTH_SECONDS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.AdminToken != "secret-token" {
		t.Errorf("AdminToken = %q, want secret-token", cfg.AdminToken)
	}
	if cfg.CooldownAuthSeconds != 30 {
		t.Errorf("CooldownAuthSeconds = %d, want 30", cfg.CooldownAuthSeconds)
	}
}
