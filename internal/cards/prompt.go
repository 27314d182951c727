package cards

import (
	"fmt"
	"strings"

	"github.com/yungbote/azbuka-poster/internal/alphabet"
)

// glyphHints gives the generation model an explicit shape description per
// Cyrillic letter, with negative guidance against the usual Latin
// substitutions. Image models drift toward Latin glyphs without this.
var glyphHints = map[string]string{
	"А": "Russian А (triangle-like, wider at top than English A)",
	"Б": "Russian Б (horizontal line at top and curved bottom, NOT English B)",
	"В": "Russian В (similar to English B but upper bump smaller than lower)",
	"Г": "Russian Г (shaped like upside-down L or Greek Gamma)",
	"Д": "Russian Д (triangle with legs extending below the baseline)",
	"Е": "Russian Е (identical to English E)",
	"Ё": "Russian Ё (like Е with two dots above, dots same color as the letter)",
	"Ж": "Russian Ж (like an asterisk or snowflake pattern)",
	"З": "Russian З (like the digit 3)",
	"И": "Russian И (like a mirrored English N)",
	"Й": "Russian Й (like И with a curved breve above)",
	"К": "Russian К (identical to English K)",
	"Л": "Russian Л (like upside-down V with feet)",
	"М": "Russian М (identical to English M)",
	"Н": "Russian Н (identical to English H)",
	"О": "Russian О (identical to English O)",
	"П": "Russian П (like Greek Pi, two verticals joined at the top)",
	"Р": "Russian Р (identical to English P)",
	"С": "Russian С (identical to English C)",
	"Т": "Russian Т (identical to English T)",
	"У": "Russian У (like English Y)",
	"Ф": "Russian Ф (circle with a vertical line through the center, like Phi)",
	"Х": "Russian Х (identical to English X)",
	"Ц": "Russian Ц (like И with a small tail at bottom right)",
	"Ч": "Russian Ч (like the digit 4)",
	"Ш": "Russian Ш (like English W but with straight vertical lines)",
	"Щ": "Russian Щ (like Ш with a small tail at bottom right)",
	"Ъ": "Russian Ъ (hard sign, like lowercase b with a top-left horizontal bar)",
	"Ы": "Russian Ы (like bl joined together)",
	"Ь": "Russian Ь (soft sign, like a small lowercase b)",
	"Э": "Russian Э (mirrored C with a horizontal bar in the middle)",
	"Ю": "Russian Ю (vertical line joined to a circle, like IO)",
	"Я": "Russian Я (mirrored English R)",
}

// BasePrompt is the first-attempt request: layout zones with enforced empty
// margins, plain high-contrast typography, child-friendly illustration.
func BasePrompt(p alphabet.Pair) string {
	hint := glyphHints[p.Letter]
	if hint == "" {
		hint = "letter " + p.Letter
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a children's educational Russian alphabet flashcard for %q and %q.\n\n", p.Letter, p.Word)
	b.WriteString("BACKGROUND:\n")
	b.WriteString("- Clean white or very light cream background, bright and child-friendly.\n\n")
	b.WriteString("LAYOUT ZONES (strict):\n")
	b.WriteString("- TOP MARGIN (0%-25%): completely empty white space, no content.\n")
	fmt.Fprintf(&b, "- LETTER ZONE (25%%-40%%): the letter %q centered, %s.\n", p.Letter, hint)
	fmt.Fprintf(&b, "- ILLUSTRATION ZONE (40%%-60%%): a simple, friendly illustration of %s.\n", p.Word)
	fmt.Fprintf(&b, "- WORD ZONE (60%%-75%%): the word %q centered.\n", p.Word)
	b.WriteString("- BOTTOM MARGIN (75%-100%): completely empty white space, no content.\n\n")
	b.WriteString("TYPOGRAPHY:\n")
	b.WriteString("- Plain, undecorated sans-serif; no shadows, gradients or artistic styling.\n")
	b.WriteString("- High contrast text on the light background; every glyph standard Cyrillic.\n")
	b.WriteString("- Conservative sizing; all text fully inside the frame, zero cutoff.\n\n")
	b.WriteString("The text must be readable by Russian OCR software.")
	return b.String()
}

// PromptAdapter turns a failed validation verdict into a corrective prompt.
// It is a pure function of its inputs: the same verdict and attempt index
// always produce the same prompt.
type PromptAdapter struct{}

func (PromptAdapter) Adapt(p alphabet.Pair, prev ValidationResult, attempt int) string {
	var intensity, urgency string
	switch {
	case attempt >= 3:
		intensity = "MAXIMUM CYRILLIC ENFORCEMENT"
		urgency = "absolutely critical, final attempt"
	case attempt == 2:
		intensity = "CYRILLIC EMERGENCY MODE"
		urgency = "extremely critical"
	default:
		intensity = "CYRILLIC FOCUS MODE"
		urgency = "important"
	}

	var missing []string
	if !prev.LetterFound {
		missing = append(missing, fmt.Sprintf("letter %q", p.Letter))
	}
	if !prev.WordFound {
		missing = append(missing, fmt.Sprintf("word %q", p.Word))
	}
	if len(missing) == 0 {
		// Validation failed on structure only; restate the base request.
		missing = append(missing, fmt.Sprintf("letter %q and word %q", p.Letter, p.Word))
	}

	hint := glyphHints[p.Letter]
	if hint == "" {
		hint = "letter " + p.Letter
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s): Russian alphabet flashcard, attempt %d.\n\n", intensity, urgency, attempt)
	b.WriteString("PREVIOUS FAILURE ANALYSIS:\n")
	fmt.Fprintf(&b, "- OCR could not detect %s.\n", strings.Join(missing, " and "))
	if len(prev.DetectedText) > 0 {
		fmt.Fprintf(&b, "- OCR detected instead: %q.\n", strings.Join(prev.DetectedText, " | "))
	} else {
		b.WriteString("- OCR found no readable text at all.\n")
	}
	fmt.Fprintf(&b, "- REQUIRED: the letter %q and the word %q, both legible.\n\n", p.Letter, p.Word)
	fmt.Fprintf(&b, "LETTER %q:\n", p.Letter)
	fmt.Fprintf(&b, "- Render authentic %s.\n", hint)
	b.WriteString("- Standard Russian textbook typography, black on white, huge, undecorated.\n")
	b.WriteString("- No Latin substitutes: B is not В, P is not Р, H is not Н.\n\n")
	fmt.Fprintf(&b, "WORD %q:\n", p.Word)
	b.WriteString("- Every character perfect Cyrillic, elementary-school textbook style.\n")
	b.WriteString("- Black on white, large, clear spacing between letters.\n\n")
	b.WriteString("LAYOUT (strict):\n")
	b.WriteString("- TOP MARGIN (0%-25%): empty. LETTER ZONE (25%-40%).\n")
	fmt.Fprintf(&b, "- ILLUSTRATION ZONE (40%%-60%%): simple illustration of %s.\n", p.Word)
	b.WriteString("- WORD ZONE (60%-75%). BOTTOM MARGIN (75%-100%): empty.\n\n")
	b.WriteString("ANTI-DECORATIVE RULES:\n")
	b.WriteString("- No artistic fonts, no shadows, no gradients, no effects on text.\n")
	b.WriteString("- Contrast ratio at least 7:1; prioritize text clarity over beauty.\n")
	if attempt >= 3 {
		b.WriteString("\nThis is the last attempt. Text readability outranks every other concern.")
	}
	return b.String()
}
