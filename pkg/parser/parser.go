package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perarneng/autoboard/pkg/interfaces"
	"github.com/perarneng/autoboard/pkg/message"
)

const (
	DefaultDepartment = "General"
	DefaultPosition   = "Employee"
)

// Options configures a Parser. Zero values fall back to defaults.
type Options struct {
	Domain        string
	SubjectPrefix string
	Logger        interfaces.Logger
}

// Parser turns onboarding emails into records. It holds no per-message
// state and is safe for concurrent use.
type Parser struct {
	domain   string
	subject  *SubjectParser
	logger   interfaces.Logger
	password func() (string, error)
	now      func() time.Time
}

func NewParser(opts Options) *Parser {
	p := &Parser{
		domain:   opts.Domain,
		subject:  defaultSubjectParser,
		logger:   opts.Logger,
		password: GeneratePassword,
		now:      time.Now,
	}
	if p.domain == "" {
		p.domain = DefaultDomain
	}
	if opts.SubjectPrefix != "" && opts.SubjectPrefix != DefaultSubjectPrefix {
		p.subject = NewSubjectParser(opts.SubjectPrefix)
	}
	return p
}

// Domain is the login domain handles are derived for.
func (p *Parser) Domain() string {
	return p.domain
}

// Parse builds a record from a decoded email. It fails only with
// ErrMissingName or a password generation error.
func (p *Parser) Parse(email *message.Email) (*interfaces.OnboardingRecord, error) {
	text := BodyText(email)
	fields := p.extract(text)
	subject := p.subject.Parse(email.Subject)

	// Candidate sources per field, highest priority first.
	var subjectName, subjectPosition, subjectCountry *string
	if subject != nil {
		if isBlank(fields.FullLegalName) && isBlank(fields.GivenName) {
			subjectName = &subject.Name
		}
		subjectPosition = &subject.Position
		if subject.Country != "" {
			subjectCountry = &subject.Country
		}
	}
	fullName := firstPresent(fields.FullLegalName, subjectName)
	position := firstPresent(fields.Position, subjectPosition)
	country := firstPresent(fields.Country, subjectCountry)

	names, err := ResolveName(deref(fields.GivenName), deref(fields.Surname), deref(fullName), deref(fields.PreferredName))
	if err != nil {
		p.warn(fmt.Sprintf("No employee name in message %s (subject %q)", email.ID, email.Subject))
		return nil, err
	}

	record, err := p.build(names, position, fields.Department, country)
	if err != nil {
		return nil, err
	}
	record.PersonalEmail = present(fields.PersonalEmail)
	record.Manager = present(fields.Manager)
	record.Provenance.EmailTrigger = true
	record.Provenance.MessageID = email.ID
	record.Provenance.SenderEmail = email.From
	record.Provenance.OriginalSubject = email.Subject
	record.Provenance.PreferredName = present(fields.PreferredName)

	p.debug(fmt.Sprintf("Parsed %s: %s <%s>, %s / %s, location %s",
		email.ID, record.FullName, record.PrimaryEmail, record.Position, record.Department, record.UsageLocation))
	return record, nil
}

func (p *Parser) extract(text string) Fields {
	var fields Fields
	for _, label := range Labels {
		value, rule := extractField(text, label)
		if value == nil {
			p.debug(fmt.Sprintf("Could not find %s", label))
		} else {
			p.debug(fmt.Sprintf("Found %s (%s format): %s", label, rule, *value))
		}
		fields.set(label, value)
	}
	return fields
}

func (p *Parser) build(names NameComponents, position, department, country *string) (*interfaces.OnboardingRecord, error) {
	password, err := p.password()
	if err != nil {
		return nil, err
	}
	handles := DeriveHandles(names.FirstName, names.LastName, p.domain)

	record := &interfaces.OnboardingRecord{
		ID:               uuid.NewString(),
		FullName:         names.FirstName + " " + names.LastName,
		FirstName:        names.FirstName,
		LastName:         names.LastName,
		Position:         orDefault(position, DefaultPosition),
		Department:       orDefault(department, DefaultDepartment),
		Country:          present(country),
		UsageLocation:    DefaultUsageLocation,
		PrimaryEmail:     handles.Primary,
		AlternativeEmail: handles.Alternative,
		LastInitial:      handles.LastInitial,
		Password:         password,
		Provenance: interfaces.Provenance{
			GivenName: names.BaseLegalFirstName,
			Surname:   names.BaseLegalLastName,
			ParsedAt:  p.now(),
		},
	}
	if !isBlank(country) {
		record.UsageLocation = MapCountry(*country)
	}
	return record, nil
}

// ManualInput is an onboarding request typed in by an operator. FullName is
// used when First or Last is missing.
type ManualInput struct {
	FirstName     string
	LastName      string
	FullName      string
	PreferredName string
	Email         string
	Position      string
	Department    string
	Country       string
	UsageLocation string
}

// Build creates a record from operator input. An explicit Email overrides the
// derived primary address; an explicit UsageLocation overrides Country.
func (p *Parser) Build(in ManualInput) (*interfaces.OnboardingRecord, error) {
	names, err := ResolveName(in.FirstName, in.LastName, in.FullName, in.PreferredName)
	if err != nil {
		return nil, err
	}

	record, err := p.build(names, optional(in.Position), optional(in.Department), optional(in.Country))
	if err != nil {
		return nil, err
	}
	if email := strings.ToLower(strings.TrimSpace(in.Email)); email != "" {
		record.PrimaryEmail = email
	}
	if loc := strings.ToUpper(strings.TrimSpace(in.UsageLocation)); loc != "" {
		record.UsageLocation = loc
	}
	record.Provenance.PreferredName = optional(in.PreferredName)
	return record, nil
}

func (p *Parser) debug(msg string) {
	if p.logger != nil {
		p.logger.Debug(msg)
	}
}

func (p *Parser) warn(msg string) {
	if p.logger != nil {
		p.logger.Warn(msg)
	}
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// firstPresent returns the first candidate that is set and non-blank.
func firstPresent(candidates ...*string) *string {
	for _, c := range candidates {
		if !isBlank(c) {
			return c
		}
	}
	return nil
}

func present(s *string) *string {
	if isBlank(s) {
		return nil
	}
	return s
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDefault(s *string, def string) string {
	if isBlank(s) {
		return def
	}
	return strings.TrimSpace(*s)
}
