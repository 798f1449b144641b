package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_ADDR", "")
	t.Setenv("PORTFOLIO_ACCESS_TTL_SECONDS", "")
	t.Setenv("SUPPORTED_LOCALES", "")

	cfg := Load()
	if cfg.Addr != ":8787" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.AccessTTL != time.Hour {
		t.Fatalf("expected 1h access ttl, got %s", cfg.AccessTTL)
	}
	if len(cfg.SupportedLocales) != 1 || cfg.SupportedLocales[0] != "en" {
		t.Fatalf("unexpected locales: %v", cfg.SupportedLocales)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORTFOLIO_CORS_ORIGINS", "https://a.dev, https://b.dev ,")
	t.Setenv("PORTFOLIO_COOKIE_SECURE", "true")
	t.Setenv("UPLOADS_MAX_BYTES", "not-a-number")
	t.Setenv("SUPPORTED_LOCALES", "en,fr")

	cfg := Load()
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.dev" {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
	if !cfg.CookieSecure {
		t.Fatal("expected secure cookies")
	}
	if cfg.UploadsMaxBytes != 10<<20 {
		t.Fatalf("expected fallback upload limit, got %d", cfg.UploadsMaxBytes)
	}
	if !cfg.LocaleSupported("FR") || cfg.LocaleSupported("de") {
		t.Fatalf("unexpected locale support for %v", cfg.SupportedLocales)
	}
}
