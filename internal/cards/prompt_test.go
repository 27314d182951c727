package cards

import (
	"strings"
	"testing"
)

func TestBasePromptNamesLetterWordAndZones(t *testing.T) {
	p := testPair(t, "Б", "барабан")

	prompt := BasePrompt(p)

	for _, want := range []string{`"Б"`, `"барабан"`, "LAYOUT ZONES", "TOP MARGIN", "BOTTOM MARGIN", "OCR"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("base prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBasePromptIncludesGlyphHint(t *testing.T) {
	p := testPair(t, "Б", "барабан")

	prompt := BasePrompt(p)

	if !strings.Contains(prompt, "NOT English B") {
		t.Fatalf("base prompt should carry the glyph hint for Б:\n%s", prompt)
	}
}

func TestAdaptIsDeterministic(t *testing.T) {
	p := testPair(t, "Б", "барабан")
	prev := ValidationResult{DetectedText: []string{"6apa6aH"}}

	a := PromptAdapter{}.Adapt(p, prev, 2)
	b := PromptAdapter{}.Adapt(p, prev, 2)

	if a != b {
		t.Fatalf("same inputs must produce the same prompt")
	}
}

func TestAdaptIntensityTiers(t *testing.T) {
	p := testPair(t, "Б", "барабан")
	prev := ValidationResult{}

	second := PromptAdapter{}.Adapt(p, prev, 2)
	if !strings.Contains(second, "CYRILLIC EMERGENCY MODE") {
		t.Fatalf("attempt 2 should escalate:\n%s", second)
	}
	if strings.Contains(second, "last attempt") {
		t.Fatalf("attempt 2 must not claim to be final")
	}

	final := PromptAdapter{}.Adapt(p, prev, 3)
	if !strings.Contains(final, "MAXIMUM CYRILLIC ENFORCEMENT") {
		t.Fatalf("attempt 3 should use maximum intensity:\n%s", final)
	}
	if !strings.Contains(final, "last attempt") {
		t.Fatalf("attempt 3 should state finality:\n%s", final)
	}
}

func TestAdaptNamesOnlyMissingTokens(t *testing.T) {
	p := testPair(t, "Б", "барабан")
	prev := ValidationResult{LetterFound: true, WordFound: false, DetectedText: []string{"Б"}}

	prompt := PromptAdapter{}.Adapt(p, prev, 2)

	if !strings.Contains(prompt, `OCR could not detect word "барабан"`) {
		t.Fatalf("failure analysis should name the missing word:\n%s", prompt)
	}
	if strings.Contains(prompt, `could not detect letter`) {
		t.Fatalf("failure analysis must not name tokens that were found:\n%s", prompt)
	}
}

func TestAdaptReportsEmptyDetection(t *testing.T) {
	p := testPair(t, "Б", "барабан")
	prev := ValidationResult{}

	prompt := PromptAdapter{}.Adapt(p, prev, 2)

	if !strings.Contains(prompt, "no readable text") {
		t.Fatalf("empty detection should be stated:\n%s", prompt)
	}
}
