package cards

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/yungbote/azbuka-poster/internal/alphabet"
	"github.com/yungbote/azbuka-poster/internal/clients/openai"
	"github.com/yungbote/azbuka-poster/internal/pkg/logger"
)

// fakeOCR replays scripted recognition results call by call; the last entry
// repeats once the script runs out.
type fakeOCR struct {
	lines [][]string
	errs  []error
	calls int
}

func (f *fakeOCR) RecognizeText(ctx context.Context, img []byte) ([]string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if len(f.lines) == 0 {
		return nil, nil
	}
	if i >= len(f.lines) {
		i = len(f.lines) - 1
	}
	return f.lines[i], nil
}

func (f *fakeOCR) Close() error { return nil }

type fakeStep struct {
	img []byte
	err error
}

// fakeImageClient records every prompt and replays scripted outcomes; the
// last step repeats once the script runs out.
type fakeImageClient struct {
	prompts []string
	script  []fakeStep
}

func (f *fakeImageClient) GenerateImage(ctx context.Context, prompt string) (openai.ImageGeneration, error) {
	f.prompts = append(f.prompts, prompt)
	if len(f.script) == 0 {
		return openai.ImageGeneration{}, nil
	}
	i := len(f.prompts) - 1
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	step := f.script[i]
	if step.err != nil {
		return openai.ImageGeneration{}, step.err
	}
	return openai.ImageGeneration{Bytes: step.img, MimeType: "image/png"}, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(logger.Nop(), t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func newTestValidator(ocr *fakeOCR) *Validator {
	cfg := ValidatorConfig{MinBytes: 1, MinDim: 1}
	if ocr == nil {
		// Typed nil would not compare equal to nil inside the validator.
		return NewValidator(logger.Nop(), nil, cfg)
	}
	return NewValidator(logger.Nop(), ocr, cfg)
}

func testPair(t *testing.T, letter, word string) alphabet.Pair {
	t.Helper()
	p, err := alphabet.NewPair(letter, word, false)
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}
	return p
}
