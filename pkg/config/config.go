// Package config loads autoboard settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultLicenseSKU    = "O365_BUSINESS_PREMIUM"
	defaultSubjectPrefix = "New Hire Onboarding"
	defaultDomain        = "spines.com"
)

// Config holds the complete application configuration.
type Config struct {
	Google     GoogleConfig     `yaml:"google"`
	Microsoft  MicrosoftConfig  `yaml:"microsoft"`
	Gmail      GmailConfig      `yaml:"gmail"`
	Onboarding OnboardingConfig `yaml:"onboarding"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Audit      AuditConfig      `yaml:"audit"`
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
}

// GoogleConfig points at the installed-app OAuth client used for both the
// Gmail mailbox and the Admin Directory.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	AdminEnabled    bool   `yaml:"admin_enabled"`
}

// MicrosoftConfig holds the Entra app registration used for Graph.
type MicrosoftConfig struct {
	TenantID             string `yaml:"tenant_id"`
	ClientID             string `yaml:"client_id"`
	ClientSecret         string `yaml:"client_secret"`
	LicenseSKU           string `yaml:"license_sku"`
	AdministrativeUnitID string `yaml:"administrative_unit_id"`
}

// GmailConfig selects which messages the watcher picks up.
type GmailConfig struct {
	Query          string        `yaml:"query"`
	ProcessedLabel string        `yaml:"processed_label"`
	MaxResults     int64         `yaml:"max_results"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

// OnboardingConfig controls record derivation.
type OnboardingConfig struct {
	Domain        string `yaml:"domain"`
	SubjectPrefix string `yaml:"subject_prefix"`
	AssignLicense bool   `yaml:"assign_license"`
}

// RateLimitConfig is the per-caller creation budget.
type RateLimitConfig struct {
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

type AuditConfig struct {
	Dir string `yaml:"dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
	APIKey string `yaml:"api_key"`
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GoogleConfigured reports whether an OAuth client file is set.
func (c *Config) GoogleConfigured() bool {
	return c.Google.CredentialsFile != ""
}

// MicrosoftConfigured reports whether all three Graph credentials are set.
func (c *Config) MicrosoftConfigured() bool {
	return c.Microsoft.TenantID != "" &&
		c.Microsoft.ClientID != "" &&
		c.Microsoft.ClientSecret != ""
}

func (c *Config) applyDefaults() {
	c.Google.TokenFile = "token.json"
	c.Google.AdminEnabled = true
	c.Microsoft.LicenseSKU = defaultLicenseSKU
	c.Gmail.Query = fmt.Sprintf(`subject:"%s" is:unread`, defaultSubjectPrefix)
	c.Gmail.ProcessedLabel = "autoboard-processed"
	c.Gmail.MaxResults = 25
	c.Gmail.PollInterval = 5 * time.Minute
	c.Onboarding.Domain = defaultDomain
	c.Onboarding.SubjectPrefix = defaultSubjectPrefix
	c.Onboarding.AssignLicense = true
	c.RateLimit.Max = 10
	c.RateLimit.Window = time.Hour
	c.Audit.Dir = "logs"
	c.Logging.Level = "info"
	c.Server.Listen = ":8080"
}

// applyEnvVars overrides configuration with non-empty environment values.
func (c *Config) applyEnvVars() error {
	strs := map[string]*string{
		"GOOGLE_CREDENTIALS_FILE": &c.Google.CredentialsFile,
		"GOOGLE_TOKEN_FILE":       &c.Google.TokenFile,
		"MICROSOFT_TENANT_ID":     &c.Microsoft.TenantID,
		"MICROSOFT_CLIENT_ID":     &c.Microsoft.ClientID,
		"MICROSOFT_CLIENT_SECRET": &c.Microsoft.ClientSecret,
		"MICROSOFT_LICENSE_SKU":   &c.Microsoft.LicenseSKU,
		"MICROSOFT_ADMIN_UNIT_ID": &c.Microsoft.AdministrativeUnitID,
		"GMAIL_QUERY":             &c.Gmail.Query,
		"GMAIL_PROCESSED_LABEL":   &c.Gmail.ProcessedLabel,
		"EMAIL_DOMAIN":            &c.Onboarding.Domain,
		"SUBJECT_PREFIX":          &c.Onboarding.SubjectPrefix,
		"AUDIT_DIR":               &c.Audit.Dir,
		"LOG_FILE":                &c.Logging.File,
		"LISTEN_ADDR":             &c.Server.Listen,
		"API_KEY":                 &c.Server.APIKey,
	}
	for name, target := range strs {
		if v := os.Getenv(name); v != "" {
			*target = v
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	bools := map[string]*bool{
		"GOOGLE_ADMIN_ENABLED": &c.Google.AdminEnabled,
		"ASSIGN_LICENSE":       &c.Onboarding.AssignLicense,
	}
	for name, target := range bools {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, v, err)
			}
			*target = b
		}
	}

	if v := os.Getenv("GMAIL_MAX_RESULTS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid GMAIL_MAX_RESULTS %q: %w", v, err)
		}
		c.Gmail.MaxResults = n
	}
	if v := os.Getenv("RATE_LIMIT_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_MAX %q: %w", v, err)
		}
		c.RateLimit.Max = n
	}

	durations := map[string]*time.Duration{
		"RATE_LIMIT_WINDOW":   &c.RateLimit.Window,
		"GMAIL_POLL_INTERVAL": &c.Gmail.PollInterval,
	}
	for name, target := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, v, err)
			}
			*target = d
		}
	}

	return nil
}
