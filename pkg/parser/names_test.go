package parser

import (
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"testing/quick"
)

// nameWord is a capitalised word that is never a particle or patronymic.
type nameWord string

func (nameWord) Generate(r *rand.Rand, _ int) reflect.Value {
	n := 4 + r.Intn(6)
	b := make([]byte, n)
	b[0] = byte('A' + r.Intn(26))
	for i := 1; i < n; i++ {
		b[i] = byte('a' + r.Intn(26))
	}
	return reflect.ValueOf(nameWord(b))
}

func TestResolveName_SingleWordProperty(t *testing.T) {
	t.Parallel()

	f := func(w nameWord) bool {
		names, err := ResolveName("", "", string(w), "")
		return err == nil && names.FirstName == string(w) && names.LastName == string(w)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestResolveName_TwoWordProperty(t *testing.T) {
	t.Parallel()

	f := func(a, b nameWord) bool {
		names, err := ResolveName("", "", string(a)+" "+string(b), "")
		return err == nil && names.FirstName == string(a) && names.LastName == string(b)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestResolveName_LastNameNeverEmpty(t *testing.T) {
	t.Parallel()

	f := func(words []nameWord, useGiven bool) bool {
		if len(words) == 0 {
			return true
		}
		parts := make([]string, len(words))
		for i, w := range words {
			parts[i] = string(w)
		}
		joined := strings.Join(parts, " ")
		var names NameComponents
		var err error
		if useGiven {
			names, err = ResolveName(joined, "", "", "")
		} else {
			names, err = ResolveName("", "", joined, "")
		}
		return err == nil && names.BaseLegalLastName != "" && names.LastName != ""
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestResolveName_LegalSplits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fullName  string
		wantFirst string
		wantLast  string
	}{
		{"Cher", "Cher", "Cher"},
		{"Ana Faustini", "Ana", "Faustini"},
		{"Ofek Ben Shabat", "Ofek", "Ben Shabat"},
		{"Noa bat Levi", "Noa", "bat Levi"},
		{"Maria da Silva", "Maria", "da Silva"},
		{"Ludwig van Beethoven", "Ludwig", "van Beethoven"},
		{"Ana Lia Faustini", "Ana Lia", "Faustini"},
		// "la" is not a particle: the second-to-last word decides.
		{"Juan de la Cruz", "Juan de", "la Cruz"},
		{"Juan Carlos de la Cruz", "Juan Carlos de", "la Cruz"},
		{"Ana Sofia La Torre", "Ana Sofia", "La Torre"},
		{"Maria La Rosa", "Maria La", "Rosa"},
		{"Pedro de Souza", "Pedro", "de Souza"},
		{"Avraham Yosef Ben David", "Avraham Yosef", "Ben David"},
		// Only the second-to-last word is inspected, so a 4-word name with
		// "de" there keeps three words as surname.
		{"Ana Maria de Souza", "Ana", "Maria de Souza"},
		{"Gabriel Garcia Marquez Lopez", "Gabriel Garcia", "Marquez Lopez"},
		{"Johann Sebastian van der Berg", "Johann Sebastian van", "der Berg"},
		{"  Ana   Lia\tFaustini ", "Ana Lia", "Faustini"},
	}

	for _, tt := range tests {
		t.Run(tt.fullName, func(t *testing.T) {
			names, err := ResolveName("", "", tt.fullName, "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if names.BaseLegalFirstName != tt.wantFirst || names.BaseLegalLastName != tt.wantLast {
				t.Errorf("legal: got %q/%q, want %q/%q",
					names.BaseLegalFirstName, names.BaseLegalLastName, tt.wantFirst, tt.wantLast)
			}
			if names.FirstName != tt.wantFirst || names.LastName != tt.wantLast {
				t.Errorf("effective: got %q/%q, want %q/%q",
					names.FirstName, names.LastName, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestResolveName_GivenAndSurnameWin(t *testing.T) {
	t.Parallel()

	names, err := ResolveName("Victoria", "Briones", "Maria Victoria Briones Ramos", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if names.FirstName != "Victoria" || names.LastName != "Briones" {
		t.Errorf("got %q/%q, want Victoria/Briones", names.FirstName, names.LastName)
	}
}

func TestResolveName_GivenWithoutSurnameUsesFullName(t *testing.T) {
	t.Parallel()

	names, err := ResolveName("Victoria", "", "Victoria Briones", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if names.BaseLegalFirstName != "Victoria" || names.BaseLegalLastName != "Briones" {
		t.Errorf("got %q/%q, want Victoria/Briones", names.BaseLegalFirstName, names.BaseLegalLastName)
	}
}

func TestResolveName_GivenOnly(t *testing.T) {
	t.Parallel()

	names, err := ResolveName("Madonna", "", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if names.BaseLegalFirstName != "Madonna" || names.BaseLegalLastName != "Madonna" {
		t.Errorf("got %q/%q, want Madonna/Madonna", names.BaseLegalFirstName, names.BaseLegalLastName)
	}
}

func TestResolveName_Preferred(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		fullName  string
		preferred string
		wantFirst string
		wantLast  string
	}{
		{"single word", "Maria Victoria Briones", "Victoria", "Victoria", "Briones"},
		{"includes legal last", "Ana Lia Faustini", "Ana Faustini", "Ana", "Faustini"},
		{"includes legal last other case", "Ana Lia Faustini", "Ana FAUSTINI", "Ana", "FAUSTINI"},
		{"multi word without last", "Mary Jane Watson", "Mary Jane", "Mary Jane", "Watson"},
		{"blank preferred", "Ana Faustini", "   ", "Ana", "Faustini"},
		{"compound legal last", "Ofek Ben Shabat", "Ofi", "Ofi", "Ben Shabat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names, err := ResolveName("", "", tt.fullName, tt.preferred)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if names.FirstName != tt.wantFirst || names.LastName != tt.wantLast {
				t.Errorf("got %q/%q, want %q/%q", names.FirstName, names.LastName, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestResolveName_MissingName(t *testing.T) {
	t.Parallel()

	_, err := ResolveName("", "Briones", "  ", "Victoria")
	if !errors.Is(err, ErrMissingName) {
		t.Fatalf("expected ErrMissingName, got %v", err)
	}
	if !strings.Contains(err.Error(), "could not extract an employee name") {
		t.Errorf("error message not actionable: %q", err.Error())
	}
}
