package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GATE_PASSWORD", "hunter2")
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("PORT", "")
	t.Setenv("POLL_INTERVAL_SECONDS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigRequiresGatePassword(t *testing.T) {
	t.Setenv("GATE_PASSWORD", "")
	t.Setenv("SESSION_SECRET", "test-secret")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing GATE_PASSWORD")
	}
}

func TestLoadConfigRequiresSessionSecret(t *testing.T) {
	t.Setenv("GATE_PASSWORD", "hunter2")
	t.Setenv("SESSION_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing SESSION_SECRET")
	}
}

func TestLoadConfigPollIntervalOverride(t *testing.T) {
	t.Setenv("GATE_PASSWORD", "hunter2")
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("POLL_INTERVAL_SECONDS", "2")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("PollInterval = %v, want 2s", cfg.PollInterval)
	}
}

func TestLoadConfigAllowedOriginsList(t *testing.T) {
	t.Setenv("GATE_PASSWORD", "hunter2")
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("AllowedOrigins = %#v, want 2 entries", cfg.AllowedOrigins)
	}
	if cfg.AllowedOrigins[1] != "https://staging.example.com" {
		t.Fatalf("AllowedOrigins[1] = %q", cfg.AllowedOrigins[1])
	}
}
