package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"GOOGLE_CREDENTIALS_FILE", "GOOGLE_TOKEN_FILE", "GOOGLE_ADMIN_ENABLED",
	"MICROSOFT_TENANT_ID", "MICROSOFT_CLIENT_ID", "MICROSOFT_CLIENT_SECRET",
	"MICROSOFT_LICENSE_SKU", "MICROSOFT_ADMIN_UNIT_ID",
	"GMAIL_QUERY", "GMAIL_PROCESSED_LABEL", "GMAIL_MAX_RESULTS", "GMAIL_POLL_INTERVAL",
	"EMAIL_DOMAIN", "SUBJECT_PREFIX", "ASSIGN_LICENSE",
	"RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW", "AUDIT_DIR",
	"LOG_LEVEL", "LOG_FILE", "LISTEN_ADDR", "API_KEY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Onboarding.Domain != "spines.com" {
		t.Errorf("Domain = %q, want spines.com", cfg.Onboarding.Domain)
	}
	if cfg.Microsoft.LicenseSKU != "O365_BUSINESS_PREMIUM" {
		t.Errorf("LicenseSKU = %q", cfg.Microsoft.LicenseSKU)
	}
	if cfg.RateLimit.Max != 10 || cfg.RateLimit.Window != time.Hour {
		t.Errorf("RateLimit = %+v, want 10 per hour", cfg.RateLimit)
	}
	if cfg.Google.TokenFile != "token.json" {
		t.Errorf("TokenFile = %q", cfg.Google.TokenFile)
	}
	if !strings.Contains(cfg.Gmail.Query, `subject:"New Hire Onboarding"`) {
		t.Errorf("Query = %q", cfg.Gmail.Query)
	}
	if cfg.GoogleConfigured() || cfg.MicrosoftConfigured() {
		t.Error("no provider should be configured by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMAIL_DOMAIN", "example.org")
	t.Setenv("MICROSOFT_TENANT_ID", "tenant")
	t.Setenv("MICROSOFT_CLIENT_ID", "client")
	t.Setenv("MICROSOFT_CLIENT_SECRET", "secret")
	t.Setenv("RATE_LIMIT_MAX", "3")
	t.Setenv("RATE_LIMIT_WINDOW", "15m")
	t.Setenv("GOOGLE_ADMIN_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Onboarding.Domain != "example.org" {
		t.Errorf("Domain = %q", cfg.Onboarding.Domain)
	}
	if !cfg.MicrosoftConfigured() {
		t.Error("MicrosoftConfigured() = false, want true")
	}
	if cfg.RateLimit.Max != 3 || cfg.RateLimit.Window != 15*time.Minute {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Google.AdminEnabled {
		t.Error("AdminEnabled = true, want false")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"RATE_LIMIT_MAX", "ten"},
		{"RATE_LIMIT_WINDOW", "an hour"},
		{"GOOGLE_ADMIN_ENABLED", "maybe"},
		{"GMAIL_MAX_RESULTS", "-x"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load with %s=%q: expected error", tt.key, tt.value)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "from-env")

	path := filepath.Join(t.TempDir(), "autoboard.yaml")
	data := `
onboarding:
  domain: corp.example
  assign_license: false
microsoft:
  tenant_id: t
  client_id: c
  client_secret: s
  administrative_unit_id: unit-1
rate_limit:
  max: 5
  window: 30m
server:
  api_key: from-file
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Onboarding.Domain != "corp.example" {
		t.Errorf("Domain = %q", cfg.Onboarding.Domain)
	}
	if cfg.Onboarding.AssignLicense {
		t.Error("AssignLicense = true, want false")
	}
	if cfg.Microsoft.AdministrativeUnitID != "unit-1" {
		t.Errorf("AdministrativeUnitID = %q", cfg.Microsoft.AdministrativeUnitID)
	}
	if cfg.RateLimit.Max != 5 || cfg.RateLimit.Window != 30*time.Minute {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Server.APIKey != "from-env" {
		t.Errorf("APIKey = %q, env should win over file", cfg.Server.APIKey)
	}
	// Untouched keys keep their defaults.
	if cfg.Microsoft.LicenseSKU != "O365_BUSINESS_PREMIUM" {
		t.Errorf("LicenseSKU = %q", cfg.Microsoft.LicenseSKU)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	clearEnv(t)

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("rate_limit: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
