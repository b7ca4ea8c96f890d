// Package provision creates accounts in Google Workspace and Microsoft 365.
package provision

import "errors"

var (
	ErrNotConfigured           = errors.New("provider not configured")
	ErrUserExists              = errors.New("user already exists")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrInvalidPassword         = errors.New("password does not meet complexity requirements")
	ErrValidation              = errors.New("validation error")
	ErrQuotaExceeded           = errors.New("directory quota exceeded")
	ErrSKUNotFound             = errors.New("license sku not found")
	ErrNoSeats                 = errors.New("no available license seats")
	ErrLicenseConflict         = errors.New("license conflicts with an existing license")
	ErrNotFound                = errors.New("not found")
	ErrAlreadyMember           = errors.New("already a member")
	ErrNetwork                 = errors.New("network error")
)

// Error is a provider failure with an operator-facing message. Kind is one
// of the sentinel errors above, or nil for unclassified failures.
type Error struct {
	Provider string
	Code     string
	Message  string
	Kind     error
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the underlying transport error.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
