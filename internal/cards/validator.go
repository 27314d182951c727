package cards

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/yungbote/azbuka-poster/internal/clients/gcp"
	"github.com/yungbote/azbuka-poster/internal/pkg/logger"
)

// ValidatorConfig bounds the structural checks. Zero values get the
// production defaults.
type ValidatorConfig struct {
	MinBytes        int64
	MaxBytes        int64
	MinDim          int
	SquareTolerance float64
}

func (c ValidatorConfig) withDefaults() ValidatorConfig {
	if c.MinBytes <= 0 {
		c.MinBytes = 10000
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 5000000
	}
	if c.MinDim <= 0 {
		c.MinDim = 100
	}
	if c.SquareTolerance <= 0 {
		c.SquareTolerance = 0.2
	}
	return c
}

// Validator inspects a generated card against the expected letter and word.
// It is a pure inspection: OCR and file-access failures degrade to issues,
// never errors, and a ValidationResult is always returned.
type Validator struct {
	log *logger.Logger
	ocr gcp.OCR
	cfg ValidatorConfig
}

// NewValidator accepts a nil OCR backend; validation then records an
// "ocr skipped" issue instead of confirming text.
func NewValidator(log *logger.Logger, ocr gcp.OCR, cfg ValidatorConfig) *Validator {
	return &Validator{
		log: log.With("service", "Validator"),
		ocr: ocr,
		cfg: cfg.withDefaults(),
	}
}

func (v *Validator) Validate(ctx context.Context, path, letter, word string) ValidationResult {
	res := ValidationResult{Issues: []string{}, DetectedText: []string{}}

	info, err := os.Stat(path)
	if err != nil {
		res.Issues = append(res.Issues, "image file does not exist")
		return res
	}

	size := info.Size()
	if size < v.cfg.MinBytes {
		res.Issues = append(res.Issues, fmt.Sprintf("image file too small (%d bytes)", size))
	} else if size > v.cfg.MaxBytes {
		res.Issues = append(res.Issues, fmt.Sprintf("image file very large (%d bytes)", size))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		res.Issues = append(res.Issues, fmt.Sprintf("cannot read image: %v", err))
		return res
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(raw)); err != nil {
		res.Issues = append(res.Issues, fmt.Sprintf("cannot decode image: %v", err))
	} else {
		w, h := cfg.Width, cfg.Height
		if w < v.cfg.MinDim || h < v.cfg.MinDim {
			res.Issues = append(res.Issues, fmt.Sprintf("image dimensions too small: %dx%d", w, h))
		}
		short := w
		if h < w {
			short = h
		}
		diff := w - h
		if diff < 0 {
			diff = -diff
		}
		if float64(diff) > float64(short)*v.cfg.SquareTolerance {
			res.Issues = append(res.Issues, fmt.Sprintf("image not square: %dx%d", w, h))
		}
	}

	res = v.checkText(ctx, raw, letter, word, res)

	res.Valid = len(res.Issues) == 0
	return res
}

func (v *Validator) checkText(ctx context.Context, img []byte, letter, word string, res ValidationResult) ValidationResult {
	if v.ocr == nil {
		res.Issues = append(res.Issues, "ocr validation skipped (recognizer unavailable)")
		return res
	}

	lines, err := v.ocr.RecognizeText(ctx, img)
	if err != nil {
		v.log.Warn("ocr failed", "letter", letter, "error", err)
		res.Issues = append(res.Issues, fmt.Sprintf("ocr validation error: %v", err))
		return res
	}

	res.DetectedText = append(res.DetectedText, lines...)
	fullText := strings.ToUpper(strings.Join(lines, "\n"))

	// Substring containment is the sole matching rule, deliberately.
	res.LetterFound = strings.Contains(fullText, strings.ToUpper(letter))
	res.WordFound = strings.Contains(fullText, strings.ToUpper(word))

	if !res.LetterFound {
		res.Issues = append(res.Issues, fmt.Sprintf("expected letter %q not detected by OCR", letter))
	}
	if !res.WordFound {
		res.Issues = append(res.Issues, fmt.Sprintf("expected word %q not detected by OCR", word))
	}
	return res
}
