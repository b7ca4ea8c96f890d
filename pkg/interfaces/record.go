package interfaces

import (
	"strings"
	"time"
)

// OnboardingRecord is the fully defaulted result of parsing one onboarding
// request. It is handed to the account-creation providers.
type OnboardingRecord struct {
	ID               string     `json:"id" yaml:"id"`
	FullName         string     `json:"fullName" yaml:"full_name"`
	FirstName        string     `json:"firstName" yaml:"first_name"`
	LastName         string     `json:"lastName" yaml:"last_name"`
	PersonalEmail    *string    `json:"personalEmail" yaml:"personal_email"`
	Manager          *string    `json:"manager" yaml:"manager"`
	Position         string     `json:"position" yaml:"position"`
	Department       string     `json:"department" yaml:"department"`
	Country          *string    `json:"country" yaml:"country"`
	UsageLocation    string     `json:"usageLocation" yaml:"usage_location"`
	PrimaryEmail     string     `json:"primaryEmail" yaml:"primary_email"`
	AlternativeEmail string     `json:"alternativeEmail" yaml:"alternative_email"`
	LastInitial      string     `json:"lastInitial" yaml:"last_initial"`
	Password         string     `json:"password" yaml:"password"`
	Provenance       Provenance `json:"provenance" yaml:"provenance"`
}

// Provenance records where a record came from.
type Provenance struct {
	EmailTrigger    bool      `json:"emailTrigger" yaml:"email_trigger"`
	MessageID       string    `json:"messageId,omitempty" yaml:"message_id,omitempty"`
	SenderEmail     string    `json:"senderEmail,omitempty" yaml:"sender_email,omitempty"`
	OriginalSubject string    `json:"originalSubject,omitempty" yaml:"original_subject,omitempty"`
	PreferredName   *string   `json:"preferredName" yaml:"preferred_name"`
	GivenName       string    `json:"givenName" yaml:"given_name"`
	Surname         string    `json:"surname" yaml:"surname"`
	ParsedAt        time.Time `json:"parsedAt" yaml:"parsed_at"`
}

// Account returns the provisioning request for the record's primary email.
func (r *OnboardingRecord) Account() Account {
	return Account{
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.PrimaryEmail,
		Password:      r.Password,
		JobTitle:      r.Position,
		Department:    r.Department,
		UsageLocation: r.UsageLocation,
	}
}

// Account is what both directories need to create a user.
type Account struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Password      string `json:"-"`
	JobTitle      string `json:"jobTitle"`
	Department    string `json:"department"`
	UsageLocation string `json:"usageLocation"`
}

// DisplayName is "First Last".
func (a Account) DisplayName() string {
	return a.FirstName + " " + a.LastName
}

// MailNickname is the local part of the login email.
func (a Account) MailNickname() string {
	nickname, _, _ := strings.Cut(a.Email, "@")
	return nickname
}

// Normalized lowercases the login email.
func (a Account) Normalized() Account {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	return a
}
