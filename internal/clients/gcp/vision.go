package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/azbuka-poster/internal/pkg/ctxutil"
	"github.com/yungbote/azbuka-poster/internal/pkg/logger"
)

// OCR extracts text lines from an image. Callers must treat failures as
// recoverable: a card can still ship without OCR confirmation.
type OCR interface {
	RecognizeText(ctx context.Context, img []byte) ([]string, error)
	Close() error
}

// OcrError wraps failures of the recognition engine itself, as opposed to
// "engine ran fine, found nothing" which is an empty result.
type OcrError struct {
	Err error
}

func (e *OcrError) Error() string { return fmt.Sprintf("ocr: %v", e.Err) }
func (e *OcrError) Unwrap() error { return e.Err }

type visionOCR struct {
	log *logger.Logger

	client    *vision.ImageAnnotatorClient
	languages []string
	timeout   time.Duration
}

// NewVision builds an OCR backed by the Vision document text detector.
// languages are BCP-47 hints applied to every request (combined-language
// recognition, e.g. ru+en for Cyrillic cards with Latin noise).
func NewVision(log *logger.Logger, languages []string) (OCR, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Vision")

	client, err := vision.NewImageAnnotatorClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}

	return &visionOCR{
		log:       slog,
		client:    client,
		languages: languages,
		timeout:   60 * time.Second,
	}, nil
}

func (s *visionOCR) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *visionOCR) RecognizeText(ctx context.Context, img []byte) ([]string, error) {
	if len(img) == 0 {
		return nil, nil
	}

	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: img},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
	}
	if len(s.languages) > 0 {
		req.ImageContext = &visionpb.ImageContext{LanguageHints: s.languages}
	}

	br := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{req}}
	resp, err := s.client.BatchAnnotateImages(ctx, br)
	if err != nil {
		return nil, &OcrError{Err: fmt.Errorf("BatchAnnotateImages: %w", err)}
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return nil, nil
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, &OcrError{Err: fmt.Errorf("annotate: %s", r0.Error.Message)}
	}

	fta := r0.FullTextAnnotation
	if fta == nil || strings.TrimSpace(fta.Text) == "" {
		return nil, nil
	}

	lines := make([]string, 0, 8)
	for _, line := range strings.Split(fta.Text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
