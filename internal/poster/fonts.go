package poster

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

type faceSet struct {
	letter font.Face
	word   font.Face
	title  font.Face
}

// loadFaces parses the configured TTF at the three sizes the renderer needs.
// With no font configured every face falls back to the built-in bitmap face,
// which keeps rendering working but has no Cyrillic coverage.
func loadFaces(fontPath string, cellSize int) (faceSet, error) {
	if fontPath == "" {
		f := basicfont.Face7x13
		return faceSet{letter: f, word: f, title: f}, nil
	}

	raw, err := os.ReadFile(fontPath)
	if err != nil {
		return faceSet{}, fmt.Errorf("read font file: %w", err)
	}
	parsed, err := truetype.Parse(raw)
	if err != nil {
		return faceSet{}, fmt.Errorf("parse TTF: %w", err)
	}

	newFace := func(size float64) font.Face {
		return truetype.NewFace(parsed, &truetype.Options{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		})
	}
	return faceSet{
		letter: newFace(float64(cellSize) / 4),
		word:   newFace(float64(cellSize) / 8),
		title:  newFace(48),
	}, nil
}
