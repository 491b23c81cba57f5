package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "EMAIL_PROVIDER", "CLINIC_TIMEZONE", "SLOT_CACHE_SIZE", "BOOKING_WINDOW", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.EmailProvider != "stub" {
		t.Fatalf("expected stub email provider, got %s", cfg.EmailProvider)
	}
	if cfg.ClinicTimezone != "UTC" {
		t.Fatalf("expected UTC clinic timezone, got %s", cfg.ClinicTimezone)
	}
	if cfg.SlotCacheSize != 256 {
		t.Fatalf("expected default slot cache size, got %d", cfg.SlotCacheSize)
	}
	if cfg.BookingWindow != time.Hour {
		t.Fatalf("expected default booking window, got %s", cfg.BookingWindow)
	}
	if cfg.AccessTokenTTL != time.Hour || cfg.RefreshTokenTTL != 24*time.Hour {
		t.Fatalf("unexpected token ttls %s / %s", cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("ADMIN_EMAIL", "  Admin@Clinic.Example ")
	t.Setenv("EMAIL_PROVIDER", " SES ")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://clinic.example, ,https://admin.clinic.example")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("BOOKING_MAX_PER_CONTACT", "3")
	t.Setenv("BOOKING_WINDOW", "15m")
	t.Setenv("PUBLIC_RATE_LIMIT_RPS", "0.5")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.AdminEmail != "admin@clinic.example" {
		t.Fatalf("expected normalized admin email, got %q", cfg.AdminEmail)
	}
	if cfg.EmailProvider != "ses" {
		t.Fatalf("expected ses provider, got %q", cfg.EmailProvider)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.clinic.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.BookingMaxPerContact != 3 || cfg.BookingWindow != 15*time.Minute {
		t.Fatalf("unexpected booking velocity config %d/%s", cfg.BookingMaxPerContact, cfg.BookingWindow)
	}
	if cfg.PublicRateLimitRPS != 0.5 {
		t.Fatalf("expected rps override, got %v", cfg.PublicRateLimitRPS)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SLOT_CACHE_SIZE", "lots")
	t.Setenv("ACCESS_TOKEN_TTL", "soon")
	cfg := Load()
	if cfg.SlotCacheSize != 256 {
		t.Fatalf("expected fallback cache size, got %d", cfg.SlotCacheSize)
	}
	if cfg.AccessTokenTTL != time.Hour {
		t.Fatalf("expected fallback access ttl, got %s", cfg.AccessTokenTTL)
	}
}
