package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/azbuka-poster/internal/alphabet"
	"github.com/yungbote/azbuka-poster/internal/cards"
	"github.com/yungbote/azbuka-poster/internal/pkg/logger"
)

var testLayout = Layout{Cols: 2, Rows: 2, CellSize: 40, Margin: 5, CellPadding: 2}

func newTestAssembler(t *testing.T, pairs []alphabet.Pair) (*Assembler, *cards.Store, string) {
	t.Helper()
	store, err := cards.NewStore(logger.Nop(), t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	outDir := t.TempDir()
	asm, err := NewAssembler(logger.Nop(), store, outDir, testLayout, pairs, "")
	if err != nil {
		t.Fatalf("new assembler: %v", err)
	}
	return asm, store, outDir
}

func seedCard(t *testing.T, store *cards.Store, letter, word string, w, h int) {
	t.Helper()
	pair, err := alphabet.NewPair(letter, word, false)
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 60, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if _, err := store.WriteCard(pair, buf.Bytes()); err != nil {
		t.Fatalf("write card: %v", err)
	}
}

func TestLayoutGeometry(t *testing.T) {
	l := Layout{Cols: 6, Rows: 6, CellSize: 400, Margin: 50, CellPadding: 10}

	if got := l.Width(); got != 2550 {
		t.Fatalf("width: want=2550 got=%d", got)
	}
	if got := l.Height(); got != 2650 {
		t.Fatalf("height: want=2650 got=%d", got)
	}

	x, y := l.CellOrigin(0, 0)
	if x != 50 || y != 130 {
		t.Fatalf("cell (0,0): want=(50,130) got=(%d,%d)", x, y)
	}
	x, y = l.CellOrigin(1, 2)
	if x != 50+2*410 || y != 130+410 {
		t.Fatalf("cell (1,2): want=(%d,%d) got=(%d,%d)", 50+2*410, 130+410, x, y)
	}
}

func TestGridLayoutRowMajor(t *testing.T) {
	pairs := alphabet.Default()[:3]
	asm, _, _ := newTestAssembler(t, pairs)

	grid := asm.GridLayout()

	if len(grid) != 2 || len(grid[0]) != 2 {
		t.Fatalf("grid shape: want=2x2 got=%dx%d", len(grid), len(grid[0]))
	}
	if grid[0][0] != "А" || grid[0][1] != "Б" || grid[1][0] != "В" {
		t.Fatalf("row-major order broken: %v", grid)
	}
	if grid[1][1] != "" {
		t.Fatalf("trailing cell should be empty, got %q", grid[1][1])
	}
}

func TestAssembleDimensionsAndStats(t *testing.T) {
	pairs := alphabet.Default()[:3]
	asm, store, _ := newTestAssembler(t, pairs)
	seedCard(t, store, "А", "арбуз", 80, 80)

	path, report, err := asm.Assemble(context.Background(), "Тест")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open poster: %v", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode poster: %v", err)
	}
	if cfg.Width != testLayout.Width() || cfg.Height != testLayout.Height() {
		t.Fatalf("poster dimensions: want=%dx%d got=%dx%d",
			testLayout.Width(), testLayout.Height(), cfg.Width, cfg.Height)
	}

	s := report.AssemblyStats
	if s.TotalCells != 3 {
		t.Fatalf("total cells: want=3 got=%d", s.TotalCells)
	}
	if s.AvailableImages != 1 || s.PlaceholderImages != 2 {
		t.Fatalf("stats: available=%d placeholders=%d", s.AvailableImages, s.PlaceholderImages)
	}
	if s.EmptyCells != 1 {
		t.Fatalf("empty cells: want=1 got=%d", s.EmptyCells)
	}
	if s.AvailableImages+s.PlaceholderImages != len(pairs) {
		t.Fatalf("every letter must render as image or placeholder")
	}
}

func TestAssembleWritesReportFile(t *testing.T) {
	pairs := alphabet.Default()[:3]
	asm, store, outDir := newTestAssembler(t, pairs)
	seedCard(t, store, "А", "арбуз", 80, 80)

	_, report, err := asm.Assemble(context.Background(), "Тест")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(outDir, "assembly_report_*.json"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one assembly report, got %v (err=%v)", matches, err)
	}
	raw, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var onDisk Report
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if onDisk.PosterInfo.Title != "Тест" {
		t.Fatalf("report title: want=Тест got=%s", onDisk.PosterInfo.Title)
	}
	if len(onDisk.AvailableLetters) != 1 || onDisk.AvailableLetters[0] != "А" {
		t.Fatalf("available letters: want=[А] got=%v", onDisk.AvailableLetters)
	}
	if len(onDisk.MissingLetters) != 2 {
		t.Fatalf("missing letters: want=2 got=%v", onDisk.MissingLetters)
	}
	if len(report.Layout) != testLayout.Rows {
		t.Fatalf("report layout rows: want=%d got=%d", testLayout.Rows, len(report.Layout))
	}
}

func TestAssembleCorruptImageFallsBackToPlaceholder(t *testing.T) {
	pairs := alphabet.Default()[:3]
	asm, store, _ := newTestAssembler(t, pairs)
	pair, err := alphabet.NewPair("А", "арбуз", false)
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}
	if _, err := store.WriteCard(pair, []byte("definitely not a png")); err != nil {
		t.Fatalf("write corrupt card: %v", err)
	}

	_, report, err := asm.Assemble(context.Background(), "Тест")
	if err != nil {
		t.Fatalf("a corrupt cell must not abort assembly: %v", err)
	}

	// The file is present so the letter counts as available even though it
	// rendered as a placeholder.
	if report.AssemblyStats.AvailableImages != 1 {
		t.Fatalf("available: want=1 got=%d", report.AssemblyStats.AvailableImages)
	}
}

func TestScan(t *testing.T) {
	pairs := alphabet.Default()[:3]
	asm, store, _ := newTestAssembler(t, pairs)
	seedCard(t, store, "Б", "барабан", 20, 20)

	res, err := asm.Scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if res.Total != 3 {
		t.Fatalf("total: want=3 got=%d", res.Total)
	}
	if len(res.Available) != 1 || res.Available[0] != "Б" {
		t.Fatalf("available: want=[Б] got=%v", res.Available)
	}
	if len(res.Missing) != 2 {
		t.Fatalf("missing: want=2 got=%v", res.Missing)
	}
}

func TestPreviewRendersContactSheet(t *testing.T) {
	pairs := alphabet.Default()[:3]
	asm, store, _ := newTestAssembler(t, pairs)
	seedCard(t, store, "А", "арбуз", 30, 30)
	seedCard(t, store, "Б", "барабан", 30, 30)

	path, err := asm.Preview(context.Background(), 10)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open preview: %v", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if cfg.Width != 2*200 {
		t.Fatalf("preview width: want=400 got=%d", cfg.Width)
	}
	if cfg.Height != 200+40 {
		t.Fatalf("preview height: want=240 got=%d", cfg.Height)
	}
}

func TestPreviewWithNoCardsFails(t *testing.T) {
	asm, _, _ := newTestAssembler(t, alphabet.Default()[:3])

	if _, err := asm.Preview(context.Background(), 10); err == nil {
		t.Fatalf("expected error when no cards exist")
	}
}

func TestLoadCellImageFitsAndCenters(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 120, 60))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, "А_арбуз.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cell, err := loadCellImage(path, 40)
	if err != nil {
		t.Fatalf("load cell: %v", err)
	}
	b := cell.Bounds()
	if b.Dx() != 40 || b.Dy() != 40 {
		t.Fatalf("cell bounds: want=40x40 got=%dx%d", b.Dx(), b.Dy())
	}
}

func TestLoadCellImageDoesNotUpscale(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, "А_арбуз.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cell, err := loadCellImage(path, 40)
	if err != nil {
		t.Fatalf("load cell: %v", err)
	}
	if b := cell.Bounds(); b.Dx() != 40 || b.Dy() != 40 {
		t.Fatalf("cell canvas must stay %dx%d, got %dx%d", 40, 40, b.Dx(), b.Dy())
	}
}
