package parser

import "testing"

func TestParseSubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		subject string
		want    *SubjectFields
	}{
		{
			"New Hire Onboarding: Ana Lia Faustini - Designer - Brazil",
			&SubjectFields{Name: "Ana Lia Faustini", Position: "Designer", Country: "Brazil"},
		},
		{
			"New Hire Onboarding: Victoria Briones - Software Engineer, Spain",
			&SubjectFields{Name: "Victoria Briones", Position: "Software Engineer", Country: "Spain"},
		},
		{
			"new hire onboarding:John Smith - Analyst",
			&SubjectFields{Name: "John Smith", Position: "Analyst"},
		},
		{
			"Fwd: New Hire Onboarding: Jo Li - Ops - Guinea-Bissau",
			&SubjectFields{Name: "Jo Li", Position: "Ops", Country: "Guinea-Bissau"},
		},
		{"Lunch on Friday?", nil},
		{"New Hire Onboarding: Nobody", nil},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			got := ParseSubject(tt.subject)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("got %+v, want nil", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("got nil, want %+v", *tt.want)
			}
			if *got != *tt.want {
				t.Errorf("got %+v, want %+v", *got, *tt.want)
			}
		})
	}
}

func TestSubjectParser_CustomPrefix(t *testing.T) {
	t.Parallel()

	p := NewSubjectParser("Welcome (EMEA)")
	got := p.Parse("Welcome (EMEA): Noa Levi - Support - Israel")
	if got == nil {
		t.Fatal("got nil")
	}
	if got.Name != "Noa Levi" || got.Position != "Support" || got.Country != "Israel" {
		t.Errorf("got %+v", *got)
	}
	if p.Parse("New Hire Onboarding: Noa Levi - Support") != nil {
		t.Error("default prefix should not match a custom parser")
	}
}
