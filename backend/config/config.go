package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var sizePattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(B|KB|MB|GB|TB)?$`)

// ParseSize converts a human-readable size string (e.g., "1MB", "512KB")
// to bytes. Supports B, KB, MB, GB, TB suffixes (case-insensitive).
// Plain numbers are bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid size format: %s (use e.g., '1MB', '512KB')", s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number in size: %s", s)
	}

	unit := strings.ToUpper(matches[2])
	if unit == "" {
		unit = "B"
	}

	multipliers := map[string]float64{
		"B":  1,
		"KB": 1024,
		"MB": 1024 * 1024,
		"GB": 1024 * 1024 * 1024,
		"TB": 1024 * 1024 * 1024 * 1024,
	}

	multiplier, ok := multipliers[unit]
	if !ok {
		return 0, fmt.Errorf("unknown size unit: %s", unit)
	}

	return int64(value * multiplier), nil
}

type Config struct {
	Listen      string          `yaml:"listen"`
	DatabaseURL string          `yaml:"database_url"` // postgres:// URL or sqlite path; empty disables persistence
	OwnerID     string          `yaml:"owner_id"`     // user id promoted to admin
	RedisURL    string          `yaml:"redis_url"`    // optional, shares the OTP resend cooldown across instances
	Session     SessionConfig   `yaml:"session"`
	OTP         OTPConfig       `yaml:"otp"`
	SMS         SMSConfig       `yaml:"sms"`
	Logs        LogsConfig      `yaml:"logs"`
	HTTP        HTTPConfig      `yaml:"http"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	CSRF        CSRFConfig      `yaml:"csrf"`
	TLS         TLSConfig       `yaml:"tls"`
}

type TLSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert"`
	Key     string `yaml:"key"`
}

type SessionConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	Secret     string        `yaml:"secret"`
	Secure     bool          `yaml:"secure"`
	CookieName string        `yaml:"cookie_name"`
}

type OTPConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	ResendCooldown  time.Duration `yaml:"resend_cooldown"` // 0 disables the cooldown
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	CleanupMaxAge   time.Duration `yaml:"cleanup_max_age"`
}

// SMSConfig selects the code sender. Without a gateway URL codes are only logged.
type SMSConfig struct {
	GatewayURL string `yaml:"gateway_url"`
	APIKey     string `yaml:"api_key"`
	SenderID   string `yaml:"sender_id"`
}

type LogsConfig struct {
	Retention time.Duration `yaml:"retention"`
}

type HTTPConfig struct {
	MaxBodySize    int64  `yaml:"-"`             // Parsed size in bytes
	MaxBodySizeRaw string `yaml:"max_body_size"` // Human-readable size (e.g., "1MB")
	// TrustedProxies are CIDRs or addresses whose X-Forwarded-For is believed.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type CSRFConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
}

var C Config

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Listen:      ":3000",
		DatabaseURL: "app.db",
		Session: SessionConfig{
			Timeout:    30 * 24 * time.Hour,
			CookieName: "app_session",
		},
		OTP: OTPConfig{
			TTL:             10 * time.Minute,
			CleanupInterval: time.Hour,
			CleanupMaxAge:   10 * time.Minute,
		},
		Logs: LogsConfig{
			Retention: 48 * time.Hour,
		},
		HTTP: HTTPConfig{
			MaxBodySize: 1024 * 1024, // 1MB
		},
		RateLimit: RateLimitConfig{
			Requests: 10,
			Window:   time.Minute,
		},
	}
}

// Load fills C from defaults, the YAML file named by CONFIG_FILE
// (config.yaml), a .env file and finally the environment.
func Load() error {
	C = Defaults()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &C); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if C.HTTP.MaxBodySizeRaw != "" {
		if size, err := ParseSize(C.HTTP.MaxBodySizeRaw); err == nil {
			C.HTTP.MaxBodySize = size
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	applyEnv(&C)
	return C.validate()
}

// validate rejects values the process cannot start with, such as a zero
// ticker interval.
func (c *Config) validate() error {
	positive := []struct {
		key string
		d   time.Duration
	}{
		{"session.timeout", c.Session.Timeout},
		{"otp.ttl", c.OTP.TTL},
		{"otp.cleanup_interval", c.OTP.CleanupInterval},
		{"otp.cleanup_max_age", c.OTP.CleanupMaxAge},
		{"logs.retention", c.Logs.Retention},
		{"rate_limit.window", c.RateLimit.Window},
	}
	for _, p := range positive {
		if p.d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", p.key, p.d)
		}
	}
	if c.OTP.ResendCooldown < 0 {
		return fmt.Errorf("otp.resend_cooldown must not be negative, got %v", c.OTP.ResendCooldown)
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("rate_limit.requests must be positive, got %d", c.RateLimit.Requests)
	}
	if c.HTTP.MaxBodySize <= 0 {
		return fmt.Errorf("http.max_body_size must be positive, got %d", c.HTTP.MaxBodySize)
	}
	return nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("PORT"); v != "" {
		c.Listen = ":" + v
	}
	if v := os.Getenv("LISTEN"); v != "" {
		c.Listen = v
	}
	if v, ok := os.LookupEnv("DATABASE_URL"); ok {
		c.DatabaseURL = v
	}
	if v := os.Getenv("OWNER_OPEN_ID"); v != "" {
		c.OwnerID = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("SESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Session.Timeout = d
		}
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv("SESSION_SECURE"); v != "" {
		c.Session.Secure = v == "true"
	}
	if v := os.Getenv("OTP_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.OTP.TTL = d
		}
	}
	if v := os.Getenv("OTP_RESEND_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.OTP.ResendCooldown = d
		}
	}
	if v := os.Getenv("SMS_GATEWAY_URL"); v != "" {
		c.SMS.GatewayURL = v
	}
	if v := os.Getenv("SMS_API_KEY"); v != "" {
		c.SMS.APIKey = v
	}
	if v := os.Getenv("SMS_SENDER_ID"); v != "" {
		c.SMS.SenderID = v
	}
	if v := os.Getenv("LOG_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Logs.Retention = d
		}
	}
	if v := os.Getenv("MAX_BODY_SIZE"); v != "" {
		if size, err := ParseSize(v); err == nil {
			c.HTTP.MaxBodySize = size
		}
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		c.HTTP.TrustedProxies = strings.Split(v, ",")
	}
	if v := os.Getenv("CSRF_ENABLED"); v == "true" {
		c.CSRF.Enabled = true
	}
	if v := os.Getenv("CSRF_SECRET"); v != "" {
		c.CSRF.Secret = v
	}
	if v := os.Getenv("TLS_ENABLED"); v == "true" {
		c.TLS.Enabled = true
	}
	if v := os.Getenv("TLS_CERT"); v != "" {
		c.TLS.Cert = v
	}
	if v := os.Getenv("TLS_KEY"); v != "" {
		c.TLS.Key = v
	}
}
