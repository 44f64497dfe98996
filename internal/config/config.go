// Package config loads the gateway's configuration directly from the
// process environment, matching the teacher's fail-fast direct-os.Getenv
// boot sequence — no flag/env library is introduced.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config is every environment-provided setting the gateway reads at startup
// (§6, plus the admin/persistence additions).
type Config struct {
	ProxyAPIKey string
	Port        string

	RefreshToken string
	ProfileArn   string
	KiroRegion   string
	KiroCreds    string

	TokenRefreshThreshold time.Duration
	MaxRetries            int
	BaseRetryDelay        time.Duration

	FirstTokenTimeout          time.Duration
	FirstTokenMaxRetries       int
	StreamReadTimeout          time.Duration
	NonStreamTimeout           time.Duration
	SlowModelTimeoutMultiplier float64

	ToolDescriptionMaxLength int
	ModelCacheTTL            time.Duration
	DefaultMaxInputTokens    int
	RateLimitPerMinute       int
	LogLevel                 string

	AdminToken string
	DataDir    string
	DBPath     string

	CooldownAuthSeconds      int
	CooldownRateLimitSeconds int
	CooldownUpstreamSeconds  int
	RequestIdleTimeout       time.Duration
}

// Load reads every env var Config needs, applying spec-mandated defaults.
// Invalid numeric values are a fatal (returned) error, matching the
// teacher's fail-fast startup.
func Load() (*Config, error) {
	cfg := &Config{
		ProxyAPIKey: os.Getenv("PROXY_API_KEY"),
		Port:        envOr("PORT", "8080"),

		RefreshToken: os.Getenv("REFRESH_TOKEN"),
		ProfileArn:   os.Getenv("PROFILE_ARN"),
		KiroRegion:   envOr("KIRO_REGION", "us-east-1"),
		KiroCreds:    os.Getenv("KIRO_CREDS_FILE"),

		LogLevel: envOr("LOG_LEVEL", "info"),

		AdminToken: os.Getenv("ADMIN_TOKEN"),
		DataDir:    envOr("GATEWAY_DATA_DIR", "./data"),
	}

	var err error
	if cfg.TokenRefreshThreshold, err = envSeconds("TOKEN_REFRESH_THRESHOLD", 300); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = envInt("MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.BaseRetryDelay, err = envSeconds("BASE_RETRY_DELAY", 1); err != nil {
		return nil, err
	}
	if cfg.FirstTokenTimeout, err = envSeconds("FIRST_TOKEN_TIMEOUT", 120); err != nil {
		return nil, err
	}
	if cfg.FirstTokenMaxRetries, err = envInt("FIRST_TOKEN_MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.StreamReadTimeout, err = envSeconds("STREAM_READ_TIMEOUT", 60); err != nil {
		return nil, err
	}
	if cfg.NonStreamTimeout, err = envSeconds("NON_STREAM_TIMEOUT", 900); err != nil {
		return nil, err
	}
	if cfg.SlowModelTimeoutMultiplier, err = envFloat("SLOW_MODEL_TIMEOUT_MULTIPLIER", 3.0); err != nil {
		return nil, err
	}
	if cfg.ToolDescriptionMaxLength, err = envInt("TOOL_DESCRIPTION_MAX_LENGTH", 10000); err != nil {
		return nil, err
	}
	if cfg.ModelCacheTTL, err = envSeconds("MODEL_CACHE_TTL", 3600); err != nil {
		return nil, err
	}
	if cfg.DefaultMaxInputTokens, err = envInt("DEFAULT_MAX_INPUT_TOKENS", 200000); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = envInt("RATE_LIMIT_PER_MINUTE", 0); err != nil {
		return nil, err
	}
	if cfg.CooldownAuthSeconds, err = envInt("COOLDOWN_AUTH_SECONDS", 60); err != nil {
		return nil, err
	}
	if cfg.CooldownRateLimitSeconds, err = envInt("COOLDOWN_RATE_LIMIT_BASE_SECONDS", 5); err != nil {
		return nil, err
	}
	if cfg.CooldownUpstreamSeconds, err = envInt("COOLDOWN_UPSTREAM_BASE_SECONDS", 2); err != nil {
		return nil, err
	}
	if cfg.RequestIdleTimeout, err = envSeconds("REQUEST_IDLE_TIMEOUT", 255); err != nil {
		return nil, err
	}

	dbPath, dbPathSet := os.LookupEnv("GATEWAY_DB_PATH")
	if !dbPathSet {
		dbPath = filepath.Join(cfg.DataDir, "gateway.db")
	} else if dbPath == "" {
		dbPath = "" // set but empty means persistence disabled, per §6 [ADD]
	} else if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(cfg.DataDir, filepath.Base(dbPath))
	}
	cfg.DBPath = dbPath

	if cfg.KiroCreds != "" && !filepath.IsAbs(cfg.KiroCreds) &&
		!hasScheme(cfg.KiroCreds) {
		cfg.KiroCreds = filepath.Join(cfg.DataDir, cfg.KiroCreds)
	}

	return cfg, nil
}

func hasScheme(s string) bool {
	return len(s) > 7 && (s[:7] == "http://" || s[:8] == "https://")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s=%q: %w", key, v, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s=%q: %w", key, v, err)
	}
	return f, nil
}

func envSeconds(key string, defSeconds int) (time.Duration, error) {
	n, err := envInt(key, defSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}
