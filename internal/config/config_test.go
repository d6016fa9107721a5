package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv(func(string) string { return "" })

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.DatabasePath != "bongbari.db" {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.JWTSecret != cfg.SessionSecret {
		t.Fatalf("expected jwt secret to fall back to session secret")
	}
	if cfg.RateLimit.MaxSubmissions != 5 || cfg.RateLimit.Window != time.Hour || cfg.RateLimit.Cooldown != 6*time.Hour {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if !cfg.AutoPublishClean {
		t.Fatal("expected clean submissions to auto publish by default")
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestFromEnvOverridesAndFallbacks(t *testing.T) {
	env := map[string]string{
		"PORT":                       "9000",
		"RATE_LIMIT_MAX_SUBMISSIONS": "3",
		"RATE_LIMIT_WINDOW":          "not-a-duration",
		"RATE_LIMIT_COOLDOWN":        "30m",
		"AUTO_PUBLISH_CLEAN":         "false",
		"CORS_ALLOWED_ORIGINS":       "https://bongbari.com, https://www.bongbari.com ,",
		"JWT_SECRET":                 "jwt-secret",
	}
	cfg := FromEnv(func(key string) string { return env[key] })

	if cfg.ListenAddr != ":9000" {
		t.Fatalf("expected listen addr from port, got %q", cfg.ListenAddr)
	}
	if cfg.RateLimit.MaxSubmissions != 3 {
		t.Fatalf("expected threshold 3, got %d", cfg.RateLimit.MaxSubmissions)
	}
	if cfg.RateLimit.Window != time.Hour {
		t.Fatalf("expected invalid window to fall back, got %s", cfg.RateLimit.Window)
	}
	if cfg.RateLimit.Cooldown != 30*time.Minute {
		t.Fatalf("expected cooldown 30m, got %s", cfg.RateLimit.Cooldown)
	}
	if cfg.AutoPublishClean {
		t.Fatal("expected auto publish disabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://www.bongbari.com" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.JWTSecret != "jwt-secret" {
		t.Fatalf("unexpected jwt secret %q", cfg.JWTSecret)
	}
}
