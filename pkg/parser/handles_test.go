package parser

import (
	"regexp"
	"testing"
	"testing/quick"
)

func TestDeriveHandles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		first, last string
		want        Handles
	}{
		{"Victoria", "Briones", Handles{"victoria@spines.com", "victoria.b@spines.com", "b"}},
		{"Victoria Briones", "Ramos", Handles{"victoria@spines.com", "victoria.r@spines.com", "r"}},
		{"José", "Núñez", Handles{"jose@spines.com", "jose.n@spines.com", "n"}},
		{"Zoë-Ann", "O'Brien", Handles{"zoeann@spines.com", "zoeann.o@spines.com", "o"}},
		{"Ofek", "Ben Shabat", Handles{"ofek@spines.com", "ofek.b@spines.com", "b"}},
		{"Li", "王", Handles{"li@spines.com", "li@spines.com", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.first+" "+tt.last, func(t *testing.T) {
			got := DeriveHandles(tt.first, tt.last, "spines.com")
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDeriveHandles_DefaultDomain(t *testing.T) {
	t.Parallel()

	got := DeriveHandles("Ana", "Faustini", "")
	if got.Primary != "ana@"+DefaultDomain {
		t.Errorf("Primary: got %q", got.Primary)
	}
}

func TestNormalizeForEmail(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":           "",
		"Ç":          "c",
		"Ångström":   "angstrom",
		"Dvořák":     "dvorak",
		"Mary-Kate":  "marykate",
		"Anne 2nd":   "anne2nd",
		"ÉLODIE":     "elodie",
		"Nguyễn":     "nguyen",
		"Søren":      "sren",
		"  spaced  ": "spaced",
	}
	for in, want := range tests {
		if got := NormalizeForEmail(in); got != want {
			t.Errorf("NormalizeForEmail(%q): got %q, want %q", in, got, want)
		}
	}
}

var emailSafe = regexp.MustCompile(`^[a-z0-9]*$`)

func TestNormalizeForEmail_Properties(t *testing.T) {
	t.Parallel()

	safe := func(s string) bool {
		return emailSafe.MatchString(NormalizeForEmail(s))
	}
	if err := quick.Check(safe, nil); err != nil {
		t.Errorf("output not email safe: %v", err)
	}

	idempotent := func(s string) bool {
		once := NormalizeForEmail(s)
		return NormalizeForEmail(once) == once
	}
	if err := quick.Check(idempotent, nil); err != nil {
		t.Errorf("not idempotent: %v", err)
	}
}

var passwordPattern = regexp.MustCompile(`^Temp[0-9a-z]{8}!A1$`)

func TestGeneratePassword(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		pw, err := GeneratePassword()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !passwordPattern.MatchString(pw) {
			t.Errorf("password %q does not match %s", pw, passwordPattern)
		}
		seen[pw] = true
	}
	if len(seen) < 2 {
		t.Errorf("passwords are not random: %v", seen)
	}
}
