package config

import (
	"fmt"
	"os"
	"strings"
)

// Issue is one configuration problem and how to fix it.
type Issue struct {
	Var      string
	Message  string
	Solution string
}

// Report is the outcome of Validate. Errors block startup, warnings do not.
type Report struct {
	Errors   []Issue
	Warnings []Issue
}

func (r Report) IsValid() bool {
	return len(r.Errors) == 0
}

var placeholderValues = []string{
	"your-google-client-id",
	"your-google-client-secret",
	"your-entra-app-client-id",
	"your-azure-app-client-id",
	"your-entra-app-client-secret",
	"your-azure-app-client-secret",
	"your-entra-tenant-id",
	"your-azure-tenant-id",
	"generate-a-random-secret-here",
}

func isPlaceholder(value string) bool {
	if value == "" {
		return true
	}
	lower := strings.ToLower(value)
	for _, p := range placeholderValues {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Validate checks the configuration for missing or placeholder values.
func (c *Config) Validate() Report {
	var r Report

	if c.Onboarding.Domain == "" || !strings.Contains(c.Onboarding.Domain, ".") {
		r.Errors = append(r.Errors, Issue{
			Var:      "EMAIL_DOMAIN",
			Message:  fmt.Sprintf("Missing or invalid login domain %q", c.Onboarding.Domain),
			Solution: "Set EMAIL_DOMAIN to the domain new accounts are created in, e.g. example.com",
		})
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		r.Errors = append(r.Errors, Issue{
			Var:      "RATE_LIMIT_MAX / RATE_LIMIT_WINDOW",
			Message:  "Rate limit must allow at least one creation per positive window",
			Solution: "Use e.g. RATE_LIMIT_MAX=10 and RATE_LIMIT_WINDOW=1h",
		})
	}

	googleValid := false
	if c.Google.CredentialsFile != "" {
		if _, err := os.Stat(c.Google.CredentialsFile); err != nil || isPlaceholder(c.Google.CredentialsFile) {
			r.Warnings = append(r.Warnings, Issue{
				Var:      "GOOGLE_CREDENTIALS_FILE",
				Message:  "Google Workspace OAuth client file is missing or unreadable",
				Solution: "Download the OAuth client JSON from Google Cloud Console or unset it to disable Google integration",
			})
		} else {
			googleValid = true
		}
	}

	ms := c.Microsoft
	hasMicrosoft := ms.ClientID != "" || ms.ClientSecret != "" || ms.TenantID != ""
	microsoftValid := !isPlaceholder(ms.ClientID) && !isPlaceholder(ms.ClientSecret) && !isPlaceholder(ms.TenantID)
	if hasMicrosoft && !microsoftValid {
		r.Warnings = append(r.Warnings, Issue{
			Var:      "MICROSOFT_CLIENT_ID / MICROSOFT_CLIENT_SECRET / MICROSOFT_TENANT_ID",
			Message:  "Incomplete or invalid Microsoft 365 credentials",
			Solution: "Configure all three credentials in Microsoft Entra admin center or remove them to disable Microsoft integration",
		})
	}

	if !googleValid && !(hasMicrosoft && microsoftValid) {
		r.Warnings = append(r.Warnings, Issue{
			Var:      "Identity providers",
			Message:  "No identity provider configured",
			Solution: "Configure at least one provider (Google Workspace or Microsoft 365) to create accounts",
		})
	}

	if c.Server.APIKey == "" {
		r.Warnings = append(r.Warnings, Issue{
			Var:      "API_KEY",
			Message:  "HTTP API runs without authentication",
			Solution: "Set API_KEY to a random secret, e.g. openssl rand -base64 32",
		})
	} else if isPlaceholder(c.Server.APIKey) || len(c.Server.APIKey) < 32 {
		r.Warnings = append(r.Warnings, Issue{
			Var:      "API_KEY",
			Message:  "API_KEY is a placeholder or too short",
			Solution: "Use a random secret of at least 32 characters",
		})
	}

	return r
}

// SetupInstructions renders a report for the terminal.
func SetupInstructions(r Report) string {
	rule := strings.Repeat("=", 64)
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n  autoboard configuration\n%s\n\n", rule, rule)

	if len(r.Errors) > 0 {
		b.WriteString("CRITICAL ERRORS (must be fixed):\n\n")
		for i, e := range r.Errors {
			fmt.Fprintf(&b, "%d. %s\n   Problem: %s\n   Solution: %s\n\n", i+1, e.Var, e.Message, e.Solution)
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("WARNINGS (recommended to fix):\n\n")
		for i, w := range r.Warnings {
			fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n\n", i+1, w.Var, w.Message, w.Solution)
		}
	}

	fmt.Fprintf(&b, "%s\n\n", rule)
	b.WriteString("Setup:\n\n")
	b.WriteString("1. Copy the example file: cp .env.example .env\n")
	b.WriteString("2. Edit .env with your credentials\n")
	b.WriteString("3. Run: autoboard validate\n")
	return b.String()
}
