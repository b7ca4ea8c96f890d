package parser

import "testing"

func TestExtractField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		label Label
		want  string
	}{
		{"inline colon", "Full Legal Name: Ana Lia Faustini\nManager: Jane Doe", LabelFullLegalName, "Ana Lia Faustini"},
		{"inline dash", "Country - Spain", LabelCountry, "Spain"},
		{"case insensitive", "full legal name: ana faustini", LabelFullLegalName, "ana faustini"},
		{"markdown label", "**Manager**: Jane Doe", LabelManager, "Jane Doe"},
		{"markdown value", "Department: **Sales**", LabelDepartment, "Sales"},
		{"html in value", "Manager: <b>Jane</b> Doe", LabelManager, "Jane Doe"},
		{"whitespace collapse", "Position:   Senior\tEngineer  ", LabelPosition, "Senior Engineer"},
		{"broken letter spacing", "Preferred Name: V ictoria", LabelPreferredName, "Victoria"},
		{"spaced capitals untouched", "Country: U S", LabelCountry, "U S"},
		{"value on next line after colon", "Surname:\n  Briones", LabelSurname, "Briones"},
		{"newline layout", "*Preferred Name*\nVictoria\n*Surname*\nBriones", LabelPreferredName, "Victoria"},
		{"newline layout stops at asterisk", "Given Name\nAna*", LabelGivenName, "Ana"},
		{"concatenated fields", "Position: Designer Department: Design", LabelDepartment, "Design"},
		{"line start beats embedded label", "Account Manager: Bob\nManager: Jane Doe", LabelManager, "Jane Doe"},
		{"email value", "Personal Email Address: vic@example.com", LabelPersonalEmail, "vic@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractField(tt.text, tt.label)
			if got == nil {
				t.Fatalf("got nil, want %q", tt.want)
			}
			if *got != tt.want {
				t.Errorf("got %q, want %q", *got, tt.want)
			}
		})
	}
}

func TestExtractField_Missing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text  string
		label Label
	}{
		{"Hello team, please onboard our new hire.", LabelManager},
		{"", LabelCountry},
		{"AccountManager: Bob", LabelManager},
		{"Department Sales", LabelDepartment},
	}
	for _, tt := range tests {
		if got := ExtractField(tt.text, tt.label); got != nil {
			t.Errorf("ExtractField(%q, %q): got %q, want nil", tt.text, tt.label, *got)
		}
	}
}

func TestExtractField_DoesNotRematchOwnOutput(t *testing.T) {
	t.Parallel()

	body := "Full Legal Name: **Maria  V ictoria** Briones\nManager: <i>Jane</i> Doe\nCountry: Spain"
	for _, label := range []Label{LabelFullLegalName, LabelManager, LabelCountry} {
		value := ExtractField(body, label)
		if value == nil {
			t.Fatalf("%s: expected a value", label)
		}
		if again := ExtractField(*value, label); again != nil {
			t.Errorf("%s: re-extracting %q returned %q", label, *value, *again)
		}
	}
}

func TestExtractFields(t *testing.T) {
	t.Parallel()

	body := "Full Legal Name: Ofek Ben Shabat\nPosition: Analyst\nCountry: Israel"
	fields := ExtractFields(body)

	if fields.FullLegalName == nil || *fields.FullLegalName != "Ofek Ben Shabat" {
		t.Errorf("FullLegalName: got %v", fields.FullLegalName)
	}
	if fields.Position == nil || *fields.Position != "Analyst" {
		t.Errorf("Position: got %v", fields.Position)
	}
	if fields.Country == nil || *fields.Country != "Israel" {
		t.Errorf("Country: got %v", fields.Country)
	}
	if fields.Manager != nil || fields.Department != nil || fields.GivenName != nil {
		t.Errorf("unexpected fields: %+v", fields)
	}
}

func TestRulesFor_CompiledOnce(t *testing.T) {
	t.Parallel()

	for _, label := range Labels {
		first := rulesFor(label)
		if len(first) != len(extractRules) {
			t.Fatalf("%s: got %d rules, want %d", label, len(first), len(extractRules))
		}
		if second := rulesFor(label); &second[0] != &first[0] {
			t.Errorf("%s: rules recompiled on second lookup", label)
		}
	}

	custom := Label("Start Date")
	if got := ExtractField("Start Date: 2024-05-01", custom); got == nil || *got != "2024-05-01" {
		t.Errorf("custom label: got %v", got)
	}
}
