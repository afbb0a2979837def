package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default HTTP_ADDR, got %s", cfg.HTTPAddr)
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Fatalf("expected 3 retry attempts, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.RetryBaseDelay != time.Second {
		t.Fatalf("expected 1s base delay, got %s", cfg.RetryBaseDelay)
	}
	if cfg.RetryFactor != 2 {
		t.Fatalf("expected factor 2, got %v", cfg.RetryFactor)
	}
	if cfg.CookieMaxAge != 7*24*time.Hour {
		t.Fatalf("expected 7d cookie max age, got %s", cfg.CookieMaxAge)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":18080")
	t.Setenv("BACKEND_BASE_URL", "http://backend.local")
	t.Setenv("API_PREFIX", "/v1")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("TRANSFER_TIMEOUT_SECONDS", "90")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_BASE_DELAY", "250ms")
	t.Setenv("COOKIE_SECURE", "true")

	cfg := Load()
	if cfg.HTTPAddr != ":18080" {
		t.Fatalf("expected HTTP_ADDR override, got %s", cfg.HTTPAddr)
	}
	if cfg.BackendBaseURL != "http://backend.local" {
		t.Fatalf("expected BACKEND_BASE_URL override, got %s", cfg.BackendBaseURL)
	}
	if cfg.APIPrefix != "/v1" {
		t.Fatalf("expected API_PREFIX override, got %s", cfg.APIPrefix)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("expected REQUEST_TIMEOUT 5s, got %s", cfg.RequestTimeout)
	}
	if cfg.TransferTimeout != 90*time.Second {
		t.Fatalf("expected TRANSFER_TIMEOUT 90s, got %s", cfg.TransferTimeout)
	}
	if cfg.RetryMaxAttempts != 5 {
		t.Fatalf("expected RETRY_MAX_ATTEMPTS 5, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.RetryBaseDelay != 250*time.Millisecond {
		t.Fatalf("expected RETRY_BASE_DELAY 250ms, got %s", cfg.RetryBaseDelay)
	}
	if !cfg.CookieSecure {
		t.Fatalf("expected COOKIE_SECURE true")
	}
}
