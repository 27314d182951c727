// Package cards implements the adaptive generate-validate-retry loop that
// produces one illustrated card per letter/word pair, and the batch
// coordinator that drives it across the whole alphabet.
package cards

// ValidationResult is the verdict from inspecting a generated card. Derived
// purely from OCR output plus structural checks; never mutated after
// creation. Valid holds iff Issues is empty.
type ValidationResult struct {
	Valid        bool     `json:"valid"`
	Issues       []string `json:"issues"`
	DetectedText []string `json:"detected_text"`
	LetterFound  bool     `json:"letter_found"`
	WordFound    bool     `json:"word_found"`
}

// Passed reports full OCR confirmation, the condition that stops the retry
// loop.
func (v ValidationResult) Passed() bool {
	return v.Valid && v.LetterFound && v.WordFound
}

// GenerationResult is the per-pair unit of output collected across a batch
// run. Success=true with a non-empty Warning is the documented best-effort
// acceptance: a file exists even though OCR never fully confirmed it.
type GenerationResult struct {
	Success      bool              `json:"success"`
	Letter       string            `json:"letter"`
	Word         string            `json:"word"`
	Filepath     string            `json:"filepath,omitempty"`
	Cached       bool              `json:"cached"`
	AttemptsUsed int               `json:"attempts_used"`
	Validation   *ValidationResult `json:"validation,omitempty"`
	Warning      string            `json:"warning,omitempty"`
	Error        string            `json:"error,omitempty"`
}
