package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPPort != 3000 {
		t.Errorf("HTTPPort = %d, want 3000", cfg.HTTPPort)
	}
	if cfg.DatabaseURL != "memory://" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	minLatency, maxLatency := cfg.Latency()
	if minLatency != 100*time.Millisecond || maxLatency != 300*time.Millisecond {
		t.Errorf("Latency() = %v-%v", minLatency, maxLatency)
	}
	if cfg.AuthEnabled {
		t.Error("AuthEnabled should default to false")
	}
	if cfg.DefaultUserID != "usr-001" {
		t.Errorf("DefaultUserID = %q", cfg.DefaultUserID)
	}
	if cfg.JWTSecret == "" {
		t.Error("JWTSecret should be generated")
	}
	if cfg.JWTExpiry() != 24*time.Hour {
		t.Errorf("JWTExpiry() = %v", cfg.JWTExpiry())
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("OPSCONSOLE_LATENCY_MIN_MS", "0")
	t.Setenv("OPSCONSOLE_LATENCY_MAX_MS", "0")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.LatencyMinMS != 0 || cfg.LatencyMaxMS != 0 {
		t.Errorf("latency = %d-%d, want 0-0", cfg.LatencyMinMS, cfg.LatencyMaxMS)
	}
	if !cfg.AuthEnabled {
		t.Error("AuthEnabled = false")
	}
	if cfg.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q", cfg.JWTSecret)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoad_PrefixWins(t *testing.T) {
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("OPSCONSOLE_HTTP_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d, want 9090", cfg.HTTPPort)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"inverted latency", map[string]string{"LATENCY_MIN_MS": "300", "LATENCY_MAX_MS": "100"}},
		{"unknown notify mode", map[string]string{"NOTIFY_MODE": "carrier-pigeon"}},
		{"zero silence sweep", map[string]string{"SILENCE_SWEEP_SECONDS": "0"}},
		{"negative silence sweep", map[string]string{"OPSCONSOLE_SILENCE_SWEEP_SECONDS": "-5"}},
		{"negative automation step", map[string]string{"AUTOMATION_STEP_MS": "-1"}},
		{"zero analytics cache", map[string]string{"ANALYTICS_CACHE_SECONDS": "0"}},
		{"zero jwt expiry", map[string]string{"JWT_EXPIRY_HOURS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestLoad_ZeroAutomationStepAllowed(t *testing.T) {
	t.Setenv("AUTOMATION_STEP_MS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AutomationStep() != 0 {
		t.Errorf("AutomationStep() = %v, want 0", cfg.AutomationStep())
	}
}

func TestLoadOrGenerateJWTSecret_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets", "jwt")

	first := loadOrGenerateJWTSecret(path)
	if len(first) != 64 {
		t.Fatalf("secret length = %d, want 64", len(first))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("secret not persisted: %v", err)
	}
	if string(data) != first {
		t.Error("persisted secret differs")
	}
	if second := loadOrGenerateJWTSecret(path); second != first {
		t.Error("second load should reuse the persisted secret")
	}
}
