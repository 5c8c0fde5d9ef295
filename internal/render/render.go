// Package render draws recorded DFT windows as annotated heatmap images
// for offline inspection.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"github.com/golang/freetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/linux-surface/iptsgo/pkg/ipts"
)

const (
	dpi      float64 = 72
	fontSize float64 = 11

	labelWidth = 120
	headerSize = 20
)

// Renderer turns DFT windows into images. One image shows the x rows on
// top of the y rows, one colored cell per I/Q component, with the row
// magnitudes annotated on the left.
type Renderer struct {
	cell    int
	context *freetype.Context
}

// New creates a renderer with the given cell edge length in pixels.
func New(cell int) (*Renderer, error) {
	if cell <= 0 {
		cell = 12
	}

	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetFontSize(fontSize)
	context.SetSrc(image.White)
	context.SetHinting(font.HintingFull)

	return &Renderer{cell: cell, context: context}, nil
}

// amplitude is the magnitude of one I/Q sample.
func amplitude(row *ipts.Row, i int) float64 {
	return math.Hypot(float64(row.Real[i]), float64(row.Imag[i]))
}

// peakAmplitude returns the strongest sample of the window, the
// normalization reference for all cells.
func peakAmplitude(w *ipts.DftWindow) float64 {
	peak := 1.0

	for i := 0; i < int(w.Rows); i++ {
		for j := 0; j < ipts.NumComponents; j++ {
			peak = math.Max(peak, amplitude(&w.X[i], j))
			peak = math.Max(peak, amplitude(&w.Y[i], j))
		}
	}

	return peak
}

// Render draws one DFT window.
func (r *Renderer) Render(w *ipts.DftWindow) (*image.RGBA, error) {
	rows := int(w.Rows)

	width := labelWidth + ipts.NumComponents*r.cell
	height := headerSize + 2*rows*r.cell

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)

	peak := peakAmplitude(w)

	drawAxis := func(axis string, get func(int) *ipts.Row, top int) error {
		for i := 0; i < rows; i++ {
			row := get(i)
			y0 := top + i*r.cell

			for j := 0; j < ipts.NumComponents; j++ {
				c := AmplitudeToColor(amplitude(row, j) / peak)
				cell := image.Rect(labelWidth+j*r.cell, y0, labelWidth+(j+1)*r.cell, y0+r.cell)
				draw.Draw(img, cell, image.NewUniform(c), image.Point{}, draw.Src)
			}

			label := fmt.Sprintf("%s[%2d] mag %9d", axis, i, row.Magnitude)
			if err := r.drawText(img, 4, y0+r.cell-2, label); err != nil {
				return err
			}
		}
		return nil
	}

	header := fmt.Sprintf("type %d  rows %d  group %d", w.Type, w.Rows, w.Group)
	if err := r.drawText(img, 4, headerSize-6, header); err != nil {
		return nil, err
	}

	if err := drawAxis("x", func(i int) *ipts.Row { return &w.X[i] }, headerSize); err != nil {
		return nil, err
	}
	if err := drawAxis("y", func(i int) *ipts.Row { return &w.Y[i] }, headerSize+rows*r.cell); err != nil {
		return nil, err
	}

	// Separator between the two axes.
	sep := image.Rect(0, headerSize+rows*r.cell, width, headerSize+rows*r.cell+1)
	draw.Draw(img, sep, image.NewUniform(color.RGBA{64, 64, 64, 255}), image.Point{}, draw.Src)

	return img, nil
}

func (r *Renderer) drawText(img *image.RGBA, x, y int, text string) error {
	r.context.SetClip(img.Bounds())
	r.context.SetDst(img)

	_, err := r.context.DrawString(text, freetype.Pt(x, y))
	return err
}

// WritePNG encodes an image into a PNG file.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
