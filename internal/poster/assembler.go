package poster

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/azbuka-poster/internal/alphabet"
	"github.com/yungbote/azbuka-poster/internal/cards"
	"github.com/yungbote/azbuka-poster/internal/pkg/ctxutil"
	"github.com/yungbote/azbuka-poster/internal/pkg/logger"
)

const (
	titleBandHeight = 100
	gridTopOffset   = 80
	loadWorkers     = 4
)

// Layout holds the poster grid geometry. All values are pixels except the
// grid dimensions.
type Layout struct {
	Cols        int
	Rows        int
	CellSize    int
	Margin      int
	CellPadding int
}

// Width is the full poster width for this layout.
func (l Layout) Width() int {
	return l.Cols*l.CellSize + (l.Cols-1)*l.CellPadding + 2*l.Margin
}

// Height is the full poster height including the title band.
func (l Layout) Height() int {
	return l.Rows*l.CellSize + (l.Rows-1)*l.CellPadding + 2*l.Margin + titleBandHeight
}

// CellOrigin returns the top-left pixel of the cell at grid position
// (row, col). The grid starts below the title band.
func (l Layout) CellOrigin(row, col int) (int, int) {
	x := l.Margin + col*(l.CellSize+l.CellPadding)
	y := l.Margin + gridTopOffset + row*(l.CellSize+l.CellPadding)
	return x, y
}

// PosterInfo describes the rendered poster artifact.
type PosterInfo struct {
	Filename   string `json:"filename"`
	Filepath   string `json:"filepath"`
	Title      string `json:"title"`
	Timestamp  string `json:"timestamp"`
	Dimensions string `json:"dimensions"`
	GridSize   string `json:"grid_size"`
	CellSize   int    `json:"cell_size"`
}

// Stats counts how each grid cell was filled.
type Stats struct {
	TotalCells        int `json:"total_cells"`
	AvailableImages   int `json:"available_images"`
	PlaceholderImages int `json:"placeholder_images"`
	EmptyCells        int `json:"empty_cells"`
}

// Report is the assembly report written next to the poster.
type Report struct {
	PosterInfo       PosterInfo `json:"poster_info"`
	AssemblyStats    Stats      `json:"assembly_stats"`
	AvailableLetters []string   `json:"available_letters"`
	MissingLetters   []string   `json:"missing_letters"`
	Layout           [][]string `json:"layout"`
}

// ScanResult summarizes which alphabet letters have a card on disk.
type ScanResult struct {
	Available []string `json:"available"`
	Missing   []string `json:"missing"`
	Total     int      `json:"total"`
}

// Assembler composes generated card images into a single poster grid.
// Letters without a card render as labeled placeholder cells so the grid
// shape is always complete.
type Assembler struct {
	log    *logger.Logger
	store  *cards.Store
	outDir string
	layout Layout
	pairs  []alphabet.Pair
	faces  faceSet
}

func NewAssembler(log *logger.Logger, store *cards.Store, outDir string, layout Layout, pairs []alphabet.Pair, fontPath string) (*Assembler, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", outDir, err)
	}
	faces, err := loadFaces(fontPath, layout.CellSize)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		pairs = alphabet.Default()
	}
	return &Assembler{
		log:    log.With("service", "PosterAssembler"),
		store:  store,
		outDir: outDir,
		layout: layout,
		pairs:  pairs,
		faces:  faces,
	}, nil
}

// Scan reports which letters have a generated card without rendering
// anything.
func (a *Assembler) Scan() (ScanResult, error) {
	available, err := a.store.AvailableLetters()
	if err != nil {
		return ScanResult{}, err
	}
	res := ScanResult{Total: len(a.pairs)}
	for _, p := range a.pairs {
		if _, ok := available[p.Letter]; ok {
			res.Available = append(res.Available, p.Letter)
		} else {
			res.Missing = append(res.Missing, p.Letter)
		}
	}
	return res, nil
}

// GridLayout arranges the alphabet row-major into the configured grid.
// Cells past the end of the alphabet are empty strings.
func (a *Assembler) GridLayout() [][]string {
	grid := make([][]string, a.layout.Rows)
	for r := range grid {
		grid[r] = make([]string, a.layout.Cols)
		for c := range grid[r] {
			idx := r*a.layout.Cols + c
			if idx < len(a.pairs) {
				grid[r][c] = a.pairs[idx].Letter
			}
		}
	}
	return grid
}

// Assemble renders the full poster and writes both the image and its
// assembly report. It returns the poster path and the report.
func (a *Assembler) Assemble(ctx context.Context, title string) (string, Report, error) {
	ctx = ctxutil.Default(ctx)
	start := time.Now()

	available, err := a.store.AvailableLetters()
	if err != nil {
		return "", Report{}, err
	}
	loaded := a.loadCells(ctx, available)
	if err := ctx.Err(); err != nil {
		return "", Report{}, err
	}

	layout := a.GridLayout()
	dc := gg.NewContext(a.layout.Width(), a.layout.Height())
	dc.SetRGB255(255, 255, 255)
	dc.Clear()

	dc.SetFontFace(a.faces.title)
	dc.SetRGB255(0, 0, 0)
	dc.DrawStringAnchored(title, float64(a.layout.Width())/2, 20+24, 0.5, 0.5)

	wordFor := map[string]string{}
	for _, p := range a.pairs {
		wordFor[p.Letter] = p.Word
	}

	stats := Stats{}
	for r, row := range layout {
		for c, letter := range row {
			if letter == "" {
				stats.EmptyCells++
				continue
			}
			stats.TotalCells++
			x, y := a.layout.CellOrigin(r, c)
			var cell image.Image
			if img, ok := loaded[letter]; ok {
				cell = img
				stats.AvailableImages++
			} else if _, present := available[letter]; present {
				// File exists but failed to decode.
				cell = a.placeholder(letter, wordFor[letter])
				stats.AvailableImages++
			} else {
				cell = a.placeholder(letter, wordFor[letter])
				stats.PlaceholderImages++
			}
			dc.DrawImage(cell, x, y)
		}
	}

	timestamp := time.Now().Format("20060102_150405")
	posterName := fmt.Sprintf("abc_poster_%s.png", timestamp)
	posterPath := filepath.Join(a.outDir, posterName)
	if err := dc.SavePNG(posterPath); err != nil {
		return "", Report{}, fmt.Errorf("save poster: %w", err)
	}

	scan, err := a.Scan()
	if err != nil {
		return "", Report{}, err
	}
	report := Report{
		PosterInfo: PosterInfo{
			Filename:   posterName,
			Filepath:   posterPath,
			Title:      title,
			Timestamp:  time.Now().Format(time.RFC3339),
			Dimensions: fmt.Sprintf("%dx%d", a.layout.Width(), a.layout.Height()),
			GridSize:   fmt.Sprintf("%dx%d", a.layout.Cols, a.layout.Rows),
			CellSize:   a.layout.CellSize,
		},
		AssemblyStats:    stats,
		AvailableLetters: scan.Available,
		MissingLetters:   scan.Missing,
		Layout:           layout,
	}
	reportPath := filepath.Join(a.outDir, fmt.Sprintf("assembly_report_%s.json", timestamp))
	if err := a.writeReport(reportPath, report); err != nil {
		a.log.Warn("write assembly report failed", "path", reportPath, "error", err)
	}

	a.log.Info("poster assembled",
		"path", posterPath,
		"available", stats.AvailableImages,
		"placeholders", stats.PlaceholderImages,
		"duration", time.Since(start).Round(time.Millisecond))
	return posterPath, report, nil
}

// Preview renders a small contact sheet of up to maxItems available cards.
func (a *Assembler) Preview(ctx context.Context, maxItems int) (string, error) {
	ctx = ctxutil.Default(ctx)
	if maxItems <= 0 {
		maxItems = 10
	}
	available, err := a.store.AvailableLetters()
	if err != nil {
		return "", err
	}

	var letters []string
	for _, p := range a.pairs {
		if _, ok := available[p.Letter]; ok {
			letters = append(letters, p.Letter)
		}
		if len(letters) == maxItems {
			break
		}
	}
	if len(letters) == 0 {
		return "", fmt.Errorf("no generated cards to preview")
	}

	const previewCell = 200
	cols := len(letters)
	if cols > 5 {
		cols = 5
	}
	rows := (len(letters) + cols - 1) / cols

	loaded := a.loadCellsSized(ctx, available, letters, previewCell)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	width := cols * previewCell
	height := rows*previewCell + 40
	dc := gg.NewContext(width, height)
	dc.SetRGB255(255, 255, 255)
	dc.Clear()
	dc.SetFontFace(a.faces.word)
	dc.SetRGB255(0, 0, 0)
	dc.DrawStringAnchored(fmt.Sprintf("Preview: %d images", len(letters)), float64(width)/2, 20, 0.5, 0.5)

	for i, letter := range letters {
		img, ok := loaded[letter]
		if !ok {
			continue
		}
		x := (i % cols) * previewCell
		y := 40 + (i/cols)*previewCell
		dc.DrawImage(img, x, y)
	}

	path := filepath.Join(a.outDir, fmt.Sprintf("preview_%s.png", time.Now().Format("20060102_150405")))
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("save preview: %w", err)
	}
	return path, nil
}

// loadCells decodes and fits every available card image concurrently.
// Decode failures are logged and omitted so the caller falls back to a
// placeholder for that cell.
func (a *Assembler) loadCells(ctx context.Context, available map[string]string) map[string]image.Image {
	return a.loadCellsSized(ctx, available, nil, a.layout.CellSize)
}

func (a *Assembler) loadCellsSized(ctx context.Context, available map[string]string, only []string, cellSize int) map[string]image.Image {
	paths := map[string]string{}
	if only == nil {
		for letter, path := range available {
			paths[letter] = path
		}
	} else {
		for _, letter := range only {
			if path, ok := available[letter]; ok {
				paths[letter] = path
			}
		}
	}

	var mu sync.Mutex
	loaded := make(map[string]image.Image, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadWorkers)
	for letter, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := loadCellImage(path, cellSize)
			if err != nil {
				a.log.Warn("card image unreadable, using placeholder", "letter", letter, "path", path, "error", err)
				return nil
			}
			mu.Lock()
			loaded[letter] = img
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return loaded
}

func (a *Assembler) writeReport(path string, report Report) error {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
