package poster

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// loadCellImage decodes a card file and fits it centered onto a white
// square cell. Images are scaled down to fit but never scaled up.
func loadCellImage(path string, cellSize int) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("decode %s: empty image", path)
	}

	scale := float64(cellSize) / float64(w)
	if s := float64(cellSize) / float64(h); s < scale {
		scale = s
	}
	if scale > 1 {
		scale = 1
	}
	tw := int(float64(w) * scale)
	th := int(float64(h) * scale)

	cell := image.NewRGBA(image.Rect(0, 0, cellSize, cellSize))
	draw.Draw(cell, cell.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	x0 := (cellSize - tw) / 2
	y0 := (cellSize - th) / 2
	draw.CatmullRom.Scale(cell, image.Rect(x0, y0, x0+tw, y0+th), src, b, draw.Over, nil)
	return cell, nil
}

// placeholder renders a labeled gray cell for a letter with no card.
func (a *Assembler) placeholder(letter, word string) image.Image {
	size := a.layout.CellSize
	dc := gg.NewContext(size, size)

	dc.SetRGB255(240, 240, 240)
	dc.Clear()

	dc.SetRGB255(100, 100, 100)
	dc.SetFontFace(a.faces.letter)
	dc.DrawStringAnchored(letter, float64(size)/2, float64(size)*0.3, 0.5, 0.5)

	if word != "" {
		dc.SetFontFace(a.faces.word)
		dc.DrawStringAnchored(word, float64(size)/2, float64(size)*0.55, 0.5, 0.5)
	}

	dc.SetRGB255(150, 150, 150)
	dc.SetFontFace(a.faces.word)
	dc.DrawStringAnchored("(placeholder)", float64(size)/2, float64(size)*0.7, 0.5, 0.5)

	dc.SetRGB255(200, 200, 200)
	dc.SetLineWidth(3)
	dc.DrawRectangle(1.5, 1.5, float64(size)-3, float64(size)-3)
	dc.Stroke()

	return dc.Image()
}
