package interfaces

import "context"

// CreatedUser identifies a user created in one of the directories.
type CreatedUser struct {
	Provider        string `json:"provider"`
	ID              string `json:"id"`
	Email           string `json:"email"`
	LicenseAssigned bool   `json:"licenseAssigned,omitempty"`
	LicenseError    string `json:"licenseError,omitempty"`
}

// License is the seat inventory of one subscribed SKU.
type License struct {
	SKUPartNumber string `json:"skuPartNumber"`
	Total         int    `json:"total"`
	Consumed      int    `json:"consumed"`
	Remaining     int    `json:"remaining"`
}

// UserDirectory creates accounts in an identity provider.
type UserDirectory interface {
	Name() string
	CreateUser(ctx context.Context, account Account) (*CreatedUser, error)
}

// LicenseManager assigns licenses and organisational units after creation.
type LicenseManager interface {
	Licenses(ctx context.Context) ([]License, error)
	AssignLicense(ctx context.Context, userID, skuPartNumber string) error
	AddToAdministrativeUnit(ctx context.Context, unitID, userID string) error
}
