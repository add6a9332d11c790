package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "REDIS_ADDR", "FILTER_DEFAULT_LIMIT", "FILTER_LIMIT_MAX",
		"COUNT_CACHE_TTL_SEC", "AUTH_ENABLED", "AUTH_JWT_VALIDATION_TYPE",
		"MODEL_MAX_INCLUDE_DEPTH", "AUTH_ADMIN_ROLE",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
	if cfg.Filters.DefaultLimit != 20 || cfg.Filters.LimitMax != 50 {
		t.Fatalf("filters = %+v", cfg.Filters)
	}
	if cfg.CountCache.TTL != time.Minute {
		t.Fatalf("count cache ttl = %s", cfg.CountCache.TTL)
	}
	if cfg.Auth.Enabled || cfg.Auth.JWT.ValidationType != "HS256" || cfg.Auth.AdminRole != "admin" {
		t.Fatalf("auth = %+v", cfg.Auth)
	}
	if cfg.MaxIncludeDepth != 3 {
		t.Fatalf("MaxIncludeDepth = %d", cfg.MaxIncludeDepth)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", " localhost:6379 ")
	t.Setenv("FILTER_LIMIT_MAX", "100")
	t.Setenv("COUNT_CACHE_TTL_SEC", "0")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_JWT_VALIDATION_TYPE", "rs256")
	t.Setenv("AUTH_JWT_CLOCK_SKEW_SEC", "5")
	t.Setenv("POSTGRES_MAX_CONN_IDLE_SEC", "30")

	cfg := LoadConfig()
	if cfg.Port != "9090" || cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("port/redis = %q %q", cfg.Port, cfg.RedisAddr)
	}
	if cfg.Filters.LimitMax != 100 {
		t.Fatalf("LimitMax = %d", cfg.Filters.LimitMax)
	}
	if cfg.CountCache.TTL != 0 {
		t.Fatalf("TTL = %s, want 0", cfg.CountCache.TTL)
	}
	if !cfg.Auth.Enabled || cfg.Auth.JWT.ValidationType != "RS256" || cfg.Auth.JWT.ClockSkewSec != 5 {
		t.Fatalf("auth = %+v", cfg.Auth)
	}
	if cfg.PostgresPool.MaxConnIdleTime != 30*time.Second {
		t.Fatalf("idle = %s", cfg.PostgresPool.MaxConnIdleTime)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "maybe")
	t.Setenv("FILTER_DEFAULT_LIMIT", "ten")

	cfg := LoadConfig()
	if cfg.Auth.Enabled {
		t.Fatalf("invalid bool must fall back to false")
	}
	if cfg.Filters.DefaultLimit != 20 {
		t.Fatalf("invalid int must fall back to 20, got %d", cfg.Filters.DefaultLimit)
	}
}
