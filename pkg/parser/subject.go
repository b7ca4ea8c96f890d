package parser

import (
	"regexp"
	"strings"
)

// DefaultSubjectPrefix is the subject prefix used by the HR onboarding form.
const DefaultSubjectPrefix = "New Hire Onboarding"

// SubjectFields is what can be recovered from an onboarding subject line.
// Country is empty when the subject does not carry one.
type SubjectFields struct {
	Name     string
	Position string
	Country  string
}

// SubjectParser understands "<prefix>: Name - Position - Country" and
// "<prefix>: Name - Position, Country".
type SubjectParser struct {
	threeSegments *regexp.Regexp
	twoSegments   *regexp.Regexp
}

// NewSubjectParser builds a parser for subjects starting with prefix.
func NewSubjectParser(prefix string) *SubjectParser {
	p := `(?i)` + regexp.QuoteMeta(prefix) + `:\s*`
	return &SubjectParser{
		threeSegments: regexp.MustCompile(p + `([^-]+)\s*-\s*([^-,]+)\s*-\s*(.+)`),
		twoSegments:   regexp.MustCompile(p + `([^-]+)\s*-\s*(.+)`),
	}
}

var defaultSubjectParser = NewSubjectParser(DefaultSubjectPrefix)

// ParseSubject parses subject with the default prefix.
func ParseSubject(subject string) *SubjectFields {
	return defaultSubjectParser.Parse(subject)
}

// Parse returns nil when neither layout matches.
func (p *SubjectParser) Parse(subject string) *SubjectFields {
	if m := p.threeSegments.FindStringSubmatch(subject); m != nil {
		return &SubjectFields{
			Name:     strings.TrimSpace(m[1]),
			Position: strings.TrimSpace(m[2]),
			Country:  strings.TrimSpace(m[3]),
		}
	}

	m := p.twoSegments.FindStringSubmatch(subject)
	if m == nil {
		return nil
	}

	fields := &SubjectFields{Name: strings.TrimSpace(m[1])}
	rest := strings.TrimSpace(m[2])
	if i := strings.Index(rest, ","); i > 0 {
		fields.Position = strings.TrimSpace(rest[:i])
		fields.Country = strings.TrimSpace(rest[i+1:])
	} else {
		fields.Position = rest
	}
	return fields
}
