package parser

import (
	"errors"
	"strings"
)

// ErrMissingName means neither a full legal name nor a given name could be
// found in the body or the subject line.
var ErrMissingName = errors.New("could not extract an employee name from the email")

// NameComponents separates the legal name from the name the employee will
// actually be known by.
type NameComponents struct {
	BaseLegalFirstName string
	BaseLegalLastName  string
	FirstName          string
	LastName           string
}

// patronymics mark the start of a Hebrew surname ("Ofek Ben Shabat").
var patronymics = map[string]bool{"ben": true, "bat": true}

// particles are single-token surname prefixes. Only the word before the
// last one is checked, so "de la" and "van der" are not recognised as units.
var particles = map[string]bool{
	"de": true, "del": true, "da": true, "do": true, "dos": true,
	"das": true, "di": true, "van": true, "von": true, "y": true,
}

// ResolveName splits the legal name into first and last names and then
// applies the preferred name on top.
func ResolveName(given, surname, fullLegal, preferred string) (NameComponents, error) {
	given = strings.TrimSpace(given)
	surname = strings.TrimSpace(surname)
	fullLegal = strings.TrimSpace(fullLegal)

	if fullLegal == "" && given == "" {
		return NameComponents{}, ErrMissingName
	}

	first, last := splitLegalName(given, surname, fullLegal)
	if last == "" {
		// Given name only, with neither surname nor full name.
		first, last = splitWords(strings.Fields(given))
	}

	names := NameComponents{
		BaseLegalFirstName: first,
		BaseLegalLastName:  last,
	}
	names.FirstName, names.LastName = applyPreferred(preferred, first, last)
	return names, nil
}

func splitLegalName(given, surname, fullLegal string) (string, string) {
	if given != "" && surname != "" {
		return given, surname
	}
	if fullLegal == "" {
		return "", ""
	}
	return splitWords(strings.Fields(fullLegal))
}

func splitWords(words []string) (string, string) {
	join := func(ws []string) string { return strings.Join(ws, " ") }
	n := len(words)

	switch {
	case n == 0:
		return "", ""
	case n == 1:
		return words[0], words[0]
	case n == 2:
		return words[0], words[1]
	}

	marker := strings.ToLower(words[n-2])

	if n == 3 {
		if patronymics[marker] || particles[marker] {
			return words[0], join(words[1:])
		}
		return join(words[:2]), words[2]
	}

	switch {
	case patronymics[marker]:
		return join(words[:n-2]), join(words[n-2:])
	case particles[marker]:
		return join(words[:n-3]), join(words[n-3:])
	default:
		// Spanish and Portuguese double surnames.
		return join(words[:n-2]), join(words[n-2:])
	}
}

func applyPreferred(preferred, legalFirst, legalLast string) (string, string) {
	words := strings.Fields(preferred)

	switch len(words) {
	case 0:
		return legalFirst, legalLast
	case 1:
		return words[0], legalLast
	}

	lastWord := words[len(words)-1]
	if strings.EqualFold(lastWord, legalLast) {
		return strings.Join(words[:len(words)-1], " "), lastWord
	}
	return strings.Join(words, " "), legalLast
}
