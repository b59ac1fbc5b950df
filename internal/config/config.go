package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is the optional prefix of every environment variable
const EnvPrefix = "OPSCONSOLE"

// Config holds all configuration for the application
type Config struct {
	// HTTP Server Configuration
	HTTPPort       int      `mapstructure:"http_port"`
	AllowedOrigins []string `mapstructure:"-"`

	// Database Configuration
	DatabaseURL string `mapstructure:"database_url"`
	LogLevel    string `mapstructure:"log_level"`

	// Simulated network latency, both 0 to disable
	LatencyMinMS int `mapstructure:"latency_min_ms"`
	LatencyMaxMS int `mapstructure:"latency_max_ms"`

	// Authentication Configuration
	AuthEnabled    bool   `mapstructure:"auth_enabled"`
	JWTSecret      string `mapstructure:"jwt_secret"`
	JWTSecretFile  string `mapstructure:"jwt_secret_file"`
	JWTExpiryHours int    `mapstructure:"jwt_expiry_hours"`
	DefaultUserID  string `mapstructure:"default_user_id"`

	// Integrations
	NotifyMode    string `mapstructure:"notify_mode"`
	WebhookSecret string `mapstructure:"webhook_secret"`

	// Background work
	AutomationStepMS      int `mapstructure:"automation_step_ms"`
	SilenceSweepSeconds   int `mapstructure:"silence_sweep_seconds"`
	AnalyticsCacheSeconds int `mapstructure:"analytics_cache_seconds"`
}

var defaults = map[string]interface{}{
	"http_port":               3000,
	"database_url":            "memory://",
	"log_level":               "info",
	"latency_min_ms":          100,
	"latency_max_ms":          300,
	"auth_enabled":            false,
	"jwt_secret":              "",
	"jwt_secret_file":         "",
	"jwt_expiry_hours":        24,
	"default_user_id":         "usr-001",
	"notify_mode":             "simulate",
	"webhook_secret":          "",
	"automation_step_ms":      500,
	"silence_sweep_seconds":   60,
	"analytics_cache_seconds": 30,
	"allowed_origins":         "*",
}

// Load reads configuration from a .env file (when present) and the environment.
// Every key can be given bare (HTTP_PORT) or prefixed (OPSCONSOLE_HTTP_PORT); the prefixed one wins.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("Error loading .env file: %v", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		upper := strings.ToUpper(key)
		if err := v.BindEnv(key, EnvPrefix+"_"+upper, upper); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", upper, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	cfg.AllowedOrigins = splitList(v.GetString("allowed_origins"))

	if cfg.LatencyMinMS < 0 || cfg.LatencyMaxMS < cfg.LatencyMinMS {
		return nil, fmt.Errorf("invalid latency range %d-%d ms", cfg.LatencyMinMS, cfg.LatencyMaxMS)
	}
	if cfg.AutomationStepMS < 0 {
		return nil, fmt.Errorf("invalid AUTOMATION_STEP_MS %d (must not be negative)", cfg.AutomationStepMS)
	}
	for _, p := range []struct {
		name  string
		value int
	}{
		{"SILENCE_SWEEP_SECONDS", cfg.SilenceSweepSeconds},
		{"ANALYTICS_CACHE_SECONDS", cfg.AnalyticsCacheSeconds},
		{"JWT_EXPIRY_HOURS", cfg.JWTExpiryHours},
	} {
		if p.value <= 0 {
			return nil, fmt.Errorf("invalid %s %d (must be positive)", p.name, p.value)
		}
	}
	switch cfg.NotifyMode {
	case "simulate", "live":
	default:
		return nil, fmt.Errorf("invalid NOTIFY_MODE %q (want simulate or live)", cfg.NotifyMode)
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = loadOrGenerateJWTSecret(cfg.JWTSecretFile)
	}
	return cfg, nil
}

// Latency returns the simulated request latency range
func (c *Config) Latency() (time.Duration, time.Duration) {
	return time.Duration(c.LatencyMinMS) * time.Millisecond, time.Duration(c.LatencyMaxMS) * time.Millisecond
}

// AutomationStep returns the delay between simulated script steps
func (c *Config) AutomationStep() time.Duration {
	return time.Duration(c.AutomationStepMS) * time.Millisecond
}

// SilenceSweep returns the interval of the silence expiry job
func (c *Config) SilenceSweep() time.Duration {
	return time.Duration(c.SilenceSweepSeconds) * time.Second
}

// AnalyticsCacheTTL returns how long the analytics overview is cached
func (c *Config) AnalyticsCacheTTL() time.Duration {
	return time.Duration(c.AnalyticsCacheSeconds) * time.Second
}

// JWTExpiry returns the lifetime of issued tokens
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryHours) * time.Hour
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadOrGenerateJWTSecret loads the secret from secretPath, or generates one and
// persists it there. Without a path the generated secret lives for this process only.
func loadOrGenerateJWTSecret(secretPath string) string {
	if secretPath != "" {
		if data, err := os.ReadFile(secretPath); err == nil {
			if secret := strings.TrimSpace(string(data)); secret != "" {
				logrus.Infof("Loaded JWT secret from %s", secretPath)
				return secret
			}
		}
	}

	secret := generateSecureSecret(32)
	if secretPath == "" {
		logrus.Info("Generated ephemeral JWT secret")
		return secret
	}

	if err := os.MkdirAll(filepath.Dir(secretPath), 0755); err != nil {
		logrus.Warnf("Could not create directory for JWT secret: %v", err)
		return secret
	}
	if err := os.WriteFile(secretPath, []byte(secret), 0600); err != nil {
		logrus.Warnf("Could not save JWT secret to file: %v", err)
	} else {
		logrus.Infof("Generated and saved new JWT secret to %s", secretPath)
	}
	return secret
}

// generateSecureSecret generates a cryptographically secure random string
func generateSecureSecret(bytes int) string {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		logrus.Warnf("Could not generate secure random bytes: %v", err)
		return "fallback-insecure-secret-please-set-jwt-secret-env"
	}
	return hex.EncodeToString(b)
}
