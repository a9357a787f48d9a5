package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate runs the test in an empty directory so no config.yaml or .env leaks in.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "")
	for _, k := range []string{"PORT", "LISTEN", "SESSION_TIMEOUT", "OWNER_OPEN_ID", "OTP_RESEND_COOLDOWN", "MAX_BODY_SIZE", "TRUSTED_PROXIES"} {
		t.Setenv(k, "")
	}
	C = Config{}
}

func TestConfig_SessionTimeout(t *testing.T) {
	isolate(t)
	t.Setenv("SESSION_TIMEOUT", "1h")

	if err := Load(); err != nil {
		t.Fatal(err)
	}

	expected := 1 * time.Hour
	if C.Session.Timeout != expected {
		t.Errorf("Expected session timeout %v, got %v", expected, C.Session.Timeout)
	}
}

func TestConfig_Defaults(t *testing.T) {
	isolate(t)

	if err := Load(); err != nil {
		t.Fatal(err)
	}

	if C.Session.Timeout != 30*24*time.Hour {
		t.Errorf("Expected default session timeout 720h, got %v", C.Session.Timeout)
	}
	if C.Session.CookieName != "app_session" {
		t.Errorf("Expected cookie name app_session, got %q", C.Session.CookieName)
	}
	if C.OTP.TTL != 10*time.Minute {
		t.Errorf("Expected OTP TTL 10m, got %v", C.OTP.TTL)
	}
	if C.OTP.ResendCooldown != 0 {
		t.Errorf("Expected cooldown disabled by default, got %v", C.OTP.ResendCooldown)
	}
	if C.HTTP.MaxBodySize != 1024*1024 {
		t.Errorf("Expected 1MB body limit, got %d", C.HTTP.MaxBodySize)
	}
}

func TestConfig_PortAndOwner(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "8081")
	t.Setenv("OWNER_OPEN_ID", "owner-1")
	t.Setenv("OTP_RESEND_COOLDOWN", "45s")

	if err := Load(); err != nil {
		t.Fatal(err)
	}

	if C.Listen != ":8081" {
		t.Errorf("Expected listen :8081, got %q", C.Listen)
	}
	if C.OwnerID != "owner-1" {
		t.Errorf("Expected owner id owner-1, got %q", C.OwnerID)
	}
	if C.OTP.ResendCooldown != 45*time.Second {
		t.Errorf("Expected cooldown 45s, got %v", C.OTP.ResendCooldown)
	}
}

func TestConfig_YAMLThenEnv(t *testing.T) {
	isolate(t)
	yml := "listen: \":9000\"\nowner_id: from-yaml\nhttp:\n  max_body_size: 2MB\nsession:\n  secret: yaml-secret\n"
	if err := os.WriteFile(filepath.Join(".", "config.yaml"), []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OWNER_OPEN_ID", "from-env")

	if err := Load(); err != nil {
		t.Fatal(err)
	}

	if C.Listen != ":9000" {
		t.Errorf("Expected listen from yaml, got %q", C.Listen)
	}
	if C.OwnerID != "from-env" {
		t.Errorf("Expected env to override yaml, got %q", C.OwnerID)
	}
	if C.HTTP.MaxBodySize != 2*1024*1024 {
		t.Errorf("Expected 2MB, got %d", C.HTTP.MaxBodySize)
	}
	if C.Session.Secret != "yaml-secret" {
		t.Errorf("Expected secret from yaml, got %q", C.Session.Secret)
	}
}

func TestConfig_DotEnv(t *testing.T) {
	isolate(t)
	os.Unsetenv("SMS_SENDER_ID")
	if err := os.WriteFile(".env", []byte("SMS_SENDER_ID=QUALIFY\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("SMS_SENDER_ID") })

	if err := Load(); err != nil {
		t.Fatal(err)
	}

	if C.SMS.SenderID != "QUALIFY" {
		t.Errorf("Expected sender id from .env, got %q", C.SMS.SenderID)
	}
}

func TestConfig_RejectsNonPositiveDurations(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{"cleanup interval", "otp:\n  cleanup_interval: 0s\n"},
		{"rate limit window", "rate_limit:\n  window: 0s\n"},
		{"negative ttl", "otp:\n  ttl: -1m\n"},
		{"log retention", "logs:\n  retention: 0s\n"},
		{"rate limit requests", "rate_limit:\n  requests: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			if err := os.WriteFile("config.yaml", []byte(tt.yml), 0o600); err != nil {
				t.Fatal(err)
			}
			if err := Load(); err == nil {
				t.Errorf("Expected %s to be rejected", tt.name)
			}
		})
	}
}

func TestConfig_RejectsZeroDurationFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("SESSION_TIMEOUT", "0s")

	if err := Load(); err == nil {
		t.Error("Expected zero session timeout to be rejected")
	}
}

func TestConfig_TrustedProxiesFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,172.16.0.5")

	if err := Load(); err != nil {
		t.Fatal(err)
	}
	if len(C.HTTP.TrustedProxies) != 2 || C.HTTP.TrustedProxies[1] != "172.16.0.5" {
		t.Errorf("Expected two trusted proxies, got %v", C.HTTP.TrustedProxies)
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1024", 1024, false},
		{"1KB", 1024, false},
		{"1.5MB", 1572864, false},
		{"2gb", 2 * 1024 * 1024 * 1024, false},
		{"", 0, true},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
