package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/perarneng/autoboard/pkg/interfaces"
	"github.com/perarneng/autoboard/pkg/parser"
)

// LicensedDirectory is a directory that also manages licenses, i.e.
// Microsoft 365.
type LicensedDirectory interface {
	interfaces.UserDirectory
	interfaces.LicenseManager
}

// Options tune one onboarding run.
type Options struct {
	AssignLicense        bool
	LicenseSKU           string
	AdministrativeUnitID string
}

// Result is the per-provider outcome. Success means at least one account
// was created; Errors may be non-empty even then.
type Result struct {
	Success           bool                    `json:"success"`
	Google            *interfaces.CreatedUser `json:"google"`
	Microsoft         *interfaces.CreatedUser `json:"microsoft"`
	Skipped           []string                `json:"skipped,omitempty"`
	Errors            []string                `json:"errors"`
	TemporaryPassword string                  `json:"temporaryPassword,omitempty"`
}

// Unified creates the same account in every configured directory.
type Unified struct {
	google    interfaces.UserDirectory
	microsoft LicensedDirectory
	logger    interfaces.Logger
	password  func() (string, error)
}

// NewUnified accepts nil for a provider that is not configured.
func NewUnified(google interfaces.UserDirectory, microsoft LicensedDirectory, logger interfaces.Logger) *Unified {
	return &Unified{
		google:    google,
		microsoft: microsoft,
		logger:    logger,
		password:  parser.GeneratePassword,
	}
}

// Configured reports whether any provider is available.
func (u *Unified) Configured() bool {
	return u.google != nil || u.microsoft != nil
}

// Onboard creates the account in Google first, then Microsoft, with one
// shared temporary password. License and administrative unit failures are
// reported in Result.Errors without failing the run. The returned error is
// non-nil only when no account was created.
func (u *Unified) Onboard(ctx context.Context, account interfaces.Account, opts Options) (*Result, error) {
	account = account.Normalized()
	result := &Result{Errors: []string{}}

	if !u.Configured() {
		result.Errors = append(result.Errors, ErrNotConfigured.Error())
		return result, ErrNotConfigured
	}

	if account.Password == "" {
		pw, err := u.password()
		if err != nil {
			return result, err
		}
		account.Password = pw
	}

	u.logger.Info(fmt.Sprintf("Starting unified onboarding for %s", account.Email))

	var failures []error

	if u.google == nil {
		result.Skipped = append(result.Skipped, "google")
	} else if user, err := u.google.CreateUser(ctx, account); err != nil {
		failures = append(failures, err)
		result.Errors = append(result.Errors, err.Error())
	} else {
		result.Google = user
	}

	if u.microsoft == nil {
		result.Skipped = append(result.Skipped, "microsoft")
	} else if user, err := u.microsoft.CreateUser(ctx, account); err != nil {
		failures = append(failures, err)
		result.Errors = append(result.Errors, err.Error())
	} else {
		result.Microsoft = user
		u.afterMicrosoft(ctx, user, opts, result)
	}

	if result.Google == nil && result.Microsoft == nil {
		u.logger.Error(fmt.Sprintf("Unified onboarding failed for %s: %v", account.Email, result.Errors))
		return result, errors.Join(failures...)
	}

	result.Success = true
	result.TemporaryPassword = account.Password
	u.logger.Info(fmt.Sprintf("Unified onboarding completed for %s (google: %t, microsoft: %t)",
		account.Email, result.Google != nil, result.Microsoft != nil))
	return result, nil
}

func (u *Unified) afterMicrosoft(ctx context.Context, user *interfaces.CreatedUser, opts Options, result *Result) {
	if opts.AssignLicense {
		sku := opts.LicenseSKU
		if sku == "" {
			sku = DefaultLicenseSKU
		}
		if err := u.microsoft.AssignLicense(ctx, user.ID, sku); err != nil {
			user.LicenseError = err.Error()
			result.Errors = append(result.Errors, fmt.Sprintf("User created but license assignment failed: %v", err))
		} else {
			user.LicenseAssigned = true
		}
	}

	if opts.AdministrativeUnitID != "" {
		if err := u.microsoft.AddToAdministrativeUnit(ctx, opts.AdministrativeUnitID, user.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("User created but could not be added to the administrative unit: %v", err))
		}
	}
}

// Licenses reports Microsoft 365 seat usage.
func (u *Unified) Licenses(ctx context.Context) ([]interfaces.License, error) {
	if u.microsoft == nil {
		return nil, fmt.Errorf("microsoft 365: %w", ErrNotConfigured)
	}
	return u.microsoft.Licenses(ctx)
}
