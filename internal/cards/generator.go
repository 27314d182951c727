package cards

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/azbuka-poster/internal/alphabet"
	"github.com/yungbote/azbuka-poster/internal/clients/openai"
	"github.com/yungbote/azbuka-poster/internal/pkg/logger"
)

type outcomeKind int

const (
	outcomeSucceeded outcomeKind = iota
	outcomeValidationFailed
	outcomeBackendFailed
)

// attemptOutcome is the typed result of one generate-then-validate cycle.
// Backend errors are caught at the attempt boundary and carried here instead
// of flowing through as control flow.
type attemptOutcome struct {
	kind       outcomeKind
	validation ValidationResult
	err        error
}

// GeneratorInfo is stamped into per-card metadata.
type GeneratorInfo struct {
	Model        string
	ImageSize    string
	ImageQuality string
}

// AdaptiveGenerator drives the generate → validate → adapt-prompt → retry
// cycle for a single pair. It owns the retry budget and the best-effort
// acceptance policy after exhaustion.
type AdaptiveGenerator struct {
	log       *logger.Logger
	ai        openai.Client
	validator *Validator
	adapter   PromptAdapter
	store     *Store
	info      GeneratorInfo
}

func NewAdaptiveGenerator(log *logger.Logger, ai openai.Client, validator *Validator, store *Store, info GeneratorInfo) *AdaptiveGenerator {
	return &AdaptiveGenerator{
		log:       log.With("service", "AdaptiveGenerator"),
		ai:        ai,
		validator: validator,
		store:     store,
		info:      info,
	}
}

// GenerateWithRetries produces the card for one pair.
//
// An existing canonical file short-circuits the whole loop: the cached file
// is re-validated but the backend is never called and attempts_used stays 0.
//
// After maxAttempts validation failures the result is still success=true
// with a warning attached. Only a backend failure on the final attempt
// yields success=false.
func (g *AdaptiveGenerator) GenerateWithRetries(ctx context.Context, pair alphabet.Pair, maxAttempts int) GenerationResult {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	log := g.log.With("letter", pair.Letter, "word", pair.Word)

	if g.store.Exists(pair) {
		path := g.store.CardPath(pair)
		log.Info("card already exists, skipping generation", "path", path)
		validation := g.validator.Validate(ctx, path, pair.Letter, pair.Word)
		return GenerationResult{
			Success:      true,
			Letter:       pair.Letter,
			Word:         pair.Word,
			Filepath:     path,
			Cached:       true,
			AttemptsUsed: 0,
			Validation:   &validation,
		}
	}

	var (
		lastValidation *ValidationResult
		lastPrompt     string
		filepath       string
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		prompt := BasePrompt(pair)
		if attempt > 1 && lastValidation != nil {
			prompt = g.adapter.Adapt(pair, *lastValidation, attempt)
		}
		lastPrompt = prompt

		log.Info("generation attempt", "attempt", attempt, "max_attempts", maxAttempts)
		outcome := g.runAttempt(ctx, pair, prompt)

		switch outcome.kind {
		case outcomeSucceeded:
			filepath = g.store.CardPath(pair)
			log.Info("validation passed", "attempts_used", attempt)
			g.store.WriteMetadata(pair, Metadata{
				Letter:        pair.Letter,
				Word:          pair.Word,
				Model:         g.info.Model,
				ImageSize:     g.info.ImageSize,
				ImageQuality:  g.info.ImageQuality,
				Prompt:        prompt,
				AttemptsUsed:  attempt,
				OCRValidation: "passed",
				Timestamp:     time.Now().Format(time.RFC3339),
			})
			v := outcome.validation
			return GenerationResult{
				Success:      true,
				Letter:       pair.Letter,
				Word:         pair.Word,
				Filepath:     filepath,
				AttemptsUsed: attempt,
				Validation:   &v,
			}

		case outcomeValidationFailed:
			filepath = g.store.CardPath(pair)
			v := outcome.validation
			lastValidation = &v
			log.Warn("validation failed",
				"attempt", attempt,
				"letter_found", v.LetterFound,
				"word_found", v.WordFound,
				"detected", v.DetectedText,
			)

		case outcomeBackendFailed:
			log.Error("attempt failed", "attempt", attempt, "error", outcome.err)
			if attempt == maxAttempts {
				return GenerationResult{
					Success:      false,
					Letter:       pair.Letter,
					Word:         pair.Word,
					AttemptsUsed: attempt,
					Validation:   lastValidation,
					Error:        outcome.err.Error(),
				}
			}
		}
	}

	// Retry budget exhausted with a file on disk: best-effort acceptance.
	g.store.WriteMetadata(pair, Metadata{
		Letter:        pair.Letter,
		Word:          pair.Word,
		Model:         g.info.Model,
		ImageSize:     g.info.ImageSize,
		ImageQuality:  g.info.ImageQuality,
		Prompt:        lastPrompt,
		AttemptsUsed:  maxAttempts,
		OCRValidation: "incomplete",
		Timestamp:     time.Now().Format(time.RFC3339),
	})
	log.Warn("max attempts reached, keeping best result", "max_attempts", maxAttempts)
	return GenerationResult{
		Success:      true,
		Letter:       pair.Letter,
		Word:         pair.Word,
		Filepath:     filepath,
		AttemptsUsed: maxAttempts,
		Validation:   lastValidation,
		Warning:      fmt.Sprintf("validation incomplete after %d attempts", maxAttempts),
	}
}

// runAttempt performs one generate → persist → validate cycle. Every
// failure before a validated file exists is a backend failure; once the file
// is written, validation decides.
func (g *AdaptiveGenerator) runAttempt(ctx context.Context, pair alphabet.Pair, prompt string) attemptOutcome {
	img, err := g.ai.GenerateImage(ctx, prompt)
	if err != nil {
		return attemptOutcome{kind: outcomeBackendFailed, err: err}
	}
	if len(img.Bytes) == 0 {
		return attemptOutcome{kind: outcomeBackendFailed, err: fmt.Errorf("backend returned empty image")}
	}

	path, err := g.store.WriteCard(pair, img.Bytes)
	if err != nil {
		return attemptOutcome{kind: outcomeBackendFailed, err: err}
	}

	validation := g.validator.Validate(ctx, path, pair.Letter, pair.Word)
	if validation.Passed() {
		return attemptOutcome{kind: outcomeSucceeded, validation: validation}
	}
	return attemptOutcome{kind: outcomeValidationFailed, validation: validation}
}
