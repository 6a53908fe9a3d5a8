package cleaner

import (
	"encoding/json"
	"testing"
)

func TestCoerceInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		in          any
		wantVal     int64
		wantOutcome Outcome
	}{
		{"nil is absent", nil, 0, OutcomeAbsent},
		{"empty string is absent", "  ", 0, OutcomeAbsent},
		{"numeric string", "42", 42, OutcomeParsed},
		{"negative string is unknown", "-1", 0, OutcomeUnknown},
		{"non-numeric string is unknown", "n/a", 0, OutcomeUnknown},
		{"json number", json.Number("1500"), 1500, OutcomeParsed},
		{"negative json number is unknown", json.Number("-7"), 0, OutcomeUnknown},
		{"float whole", float64(12), 12, OutcomeParsed},
		{"float fractional is unknown", 12.5, 0, OutcomeUnknown},
		{"int", 3, 3, OutcomeParsed},
		{"unexpected type is unknown", []string{"x"}, 0, OutcomeUnknown},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, outcome := coerceInt(tt.in)
			if outcome != tt.wantOutcome {
				t.Fatalf("outcome = %v, want %v", outcome, tt.wantOutcome)
			}
			if tt.wantOutcome == OutcomeParsed {
				if got == nil || *got != tt.wantVal {
					t.Fatalf("value = %v, want %d", got, tt.wantVal)
				}
				return
			}
			// Unknown and absent both carry the nil sentinel, never zero.
			if got != nil {
				t.Fatalf("value = %v, want nil sentinel", *got)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain passthrough", "Hello world", "Hello world"},
		{"trims whitespace", "  padded  ", "padded"},
		// U+200B zero width space is a Cf character and must disappear.
		{"strips format characters", "Mu​sic", "Music"},
		// NFC: "e" + combining acute composes to a single code point.
		{"composes to NFC", "Pokémon", "Pokémon"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := normalizeText(tt.in); got != tt.want {
				t.Fatalf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
