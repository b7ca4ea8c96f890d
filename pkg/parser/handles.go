package parser

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultDomain is the login domain used when none is configured.
const DefaultDomain = "spines.com"

// Handles are the candidate login addresses for an employee.
type Handles struct {
	Primary     string
	Alternative string
	LastInitial string
}

// NormalizeForEmail strips accents and everything outside [a-z0-9].
func NormalizeForEmail(name string) string {
	if name == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	stripped = strings.ToLower(stripped)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, stripped)
}

// DeriveHandles builds "first@domain" and "first.l@domain". Only the first
// word of firstName is used, so "Victoria Briones" yields "victoria@".
func DeriveHandles(firstName, lastName, domain string) Handles {
	if domain == "" {
		domain = DefaultDomain
	}

	var firstWord string
	if words := strings.Fields(firstName); len(words) > 0 {
		firstWord = words[0]
	}
	local := NormalizeForEmail(firstWord)

	var initial string
	if last := NormalizeForEmail(lastName); last != "" {
		initial = last[:1]
	}

	h := Handles{
		Primary:     local + "@" + domain,
		Alternative: local + "@" + domain,
		LastInitial: initial,
	}
	if initial != "" {
		h.Alternative = local + "." + initial + "@" + domain
	}
	return h
}

const passwordAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GeneratePassword returns a temporary password of the form
// "Temp" + 8 random characters + "!A1", which satisfies both directories'
// complexity rules.
func GeneratePassword() (string, error) {
	var b strings.Builder
	b.WriteString("Temp")
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := 0; i < 8; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	b.WriteString("!A1")
	return b.String(), nil
}
