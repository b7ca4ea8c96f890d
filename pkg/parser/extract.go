package parser

import (
	"regexp"
	"strings"
	"sync"
)

// Label is a field caption as it appears in onboarding email bodies.
type Label string

const (
	LabelFullLegalName Label = "Full Legal Name"
	LabelGivenName     Label = "Given Name"
	LabelSurname       Label = "Surname"
	LabelPreferredName Label = "Preferred Name"
	LabelPersonalEmail Label = "Personal Email Address"
	LabelManager       Label = "Manager"
	LabelPosition      Label = "Position"
	LabelDepartment    Label = "Department"
	LabelCountry       Label = "Country"
)

// Labels lists every label the parser looks for, in extraction order.
var Labels = []Label{
	LabelFullLegalName,
	LabelGivenName,
	LabelSurname,
	LabelPreferredName,
	LabelPersonalEmail,
	LabelManager,
	LabelPosition,
	LabelDepartment,
	LabelCountry,
}

// Fields holds the raw values found in an email body. A nil field was not
// present in the body.
type Fields struct {
	FullLegalName *string
	GivenName     *string
	Surname       *string
	PreferredName *string
	PersonalEmail *string
	Manager       *string
	Position      *string
	Department    *string
	Country       *string
}

func (f *Fields) set(label Label, value *string) {
	switch label {
	case LabelFullLegalName:
		f.FullLegalName = value
	case LabelGivenName:
		f.GivenName = value
	case LabelSurname:
		f.Surname = value
	case LabelPreferredName:
		f.PreferredName = value
	case LabelPersonalEmail:
		f.PersonalEmail = value
	case LabelManager:
		f.Manager = value
	case LabelPosition:
		f.Position = value
	case LabelDepartment:
		f.Department = value
	case LabelCountry:
		f.Country = value
	}
}

// extractRule is one way a label and its value can be laid out.
type extractRule struct {
	name    string
	pattern func(label string) string
}

// extractRules are tried in order; the first match wins.
var extractRules = []extractRule{
	{
		// Label opening its own line, so "Manager: Jane" beats an earlier
		// "Account Manager: Bob".
		name: "line",
		pattern: func(label string) string {
			return `(?im)^[\s*_>\-]*` + label + `[*_]*\s*[:\-]\s*([^\n\r]+)`
		},
	},
	{
		// "Manager: Jane Doe", "**Manager**: Jane Doe", "Manager - Jane Doe",
		// also when fields run together on one line.
		name: "inline",
		pattern: func(label string) string {
			return `(?i)\b` + label + `[*_]*\s*[:\-]\s*([^\n\r]+)`
		},
	},
	{
		// "*Manager*\nJane Doe"
		name: "newline",
		pattern: func(label string) string {
			return `(?i)\*?` + label + `\*?\s*\n\s*([^\n\r*]+)`
		},
	},
}

var (
	htmlTagPattern     = regexp.MustCompile(`<[^>]+>`)
	emphasisPattern    = regexp.MustCompile(`\*+`)
	whitespacePattern  = regexp.MustCompile(`[\s\p{Zs}]+`)
	brokenWordPattern  = regexp.MustCompile(`\b([A-Z])\s+([a-z])`)
	labelMarkupPattern = regexp.MustCompile(`[*_]`)
)

// cleanups run in order over every extracted value.
var cleanups = []func(string) string{
	func(s string) string { return htmlTagPattern.ReplaceAllString(s, "") },
	func(s string) string { return emphasisPattern.ReplaceAllString(s, "") },
	func(s string) string { return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " ")) },
	// "V ictoria" -> "Victoria"
	func(s string) string { return brokenWordPattern.ReplaceAllString(s, "${1}${2}") },
}

type compiledRule struct {
	name string
	re   *regexp.Regexp
}

func compileRules(label Label) []compiledRule {
	clean := regexp.QuoteMeta(labelMarkupPattern.ReplaceAllString(string(label), ""))
	rules := make([]compiledRule, len(extractRules))
	for i, rule := range extractRules {
		rules[i] = compiledRule{name: rule.name, re: regexp.MustCompile(rule.pattern(clean))}
	}
	return rules
}

// labelRules holds the compiled rules for every known label.
var labelRules = sync.OnceValue(func() map[Label][]compiledRule {
	m := make(map[Label][]compiledRule, len(Labels))
	for _, label := range Labels {
		m[label] = compileRules(label)
	}
	return m
})

func rulesFor(label Label) []compiledRule {
	if rules, ok := labelRules()[label]; ok {
		return rules
	}
	return compileRules(label)
}

// ExtractField returns the value that follows label in text, or nil when the
// label does not appear in any known layout.
func ExtractField(text string, label Label) *string {
	value, _ := extractField(text, label)
	return value
}

// extractField also reports which rule matched, for logging.
func extractField(text string, label Label) (*string, string) {
	for _, rule := range rulesFor(label) {
		match := rule.re.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		value := match[1]
		for _, cleanup := range cleanups {
			value = cleanup(value)
		}
		return &value, rule.name
	}

	return nil, ""
}

// ExtractFields runs ExtractField for every label.
func ExtractFields(text string) Fields {
	var fields Fields
	for _, label := range Labels {
		fields.set(label, ExtractField(text, label))
	}
	return fields
}
