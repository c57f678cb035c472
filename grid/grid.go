// Package grid holds source rasters and the geographic views built over them.
package grid

import (
	"fmt"
	"image"
	"image/color"

	"github.com/eak1mov/go-skytiles/tile"
	"golang.org/x/image/draw"
)

// SourceGrid is a raster addressed by row and column. A circular grid wraps
// its columns: column Width() is column 0 again.
type SourceGrid interface {
	Width() int
	Height() int
	Circular() bool
}

// ImageGrid is a grid of non-premultiplied colors. It is immutable.
type ImageGrid struct {
	pixels   *image.NRGBA
	circular bool
}

// NewImageGrid copies img into a new grid unless it is already an *image.NRGBA
// anchored at the origin.
func NewImageGrid(img image.Image, circular bool) *ImageGrid {
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		b := img.Bounds()
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Rect, img, b.Min, draw.Src)
	}
	return &ImageGrid{pixels: nrgba, circular: circular}
}

func (g *ImageGrid) Width() int     { return g.pixels.Rect.Dx() }
func (g *ImageGrid) Height() int    { return g.pixels.Rect.Dy() }
func (g *ImageGrid) Circular() bool { return g.circular }

func (g *ImageGrid) Sample(row, col int) color.NRGBA {
	row, col = wrapIndex(row, g.Height(), false), wrapIndex(col, g.Width(), g.circular)
	i := g.pixels.PixOffset(col, row)
	p := g.pixels.Pix[i : i+4 : i+4]
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// ElevationGrid is a grid of signed 16-bit samples stored row-major. It is immutable.
type ElevationGrid struct {
	width, height int
	samples       []int16
	circular      bool
}

func NewElevationGrid(width, height int, samples []int16, circular bool) (*ElevationGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: elevation grid size %dx%d", tile.ErrInvalidArgument, width, height)
	}
	if len(samples) != width*height {
		return nil, fmt.Errorf("%w: %d samples for a %dx%d grid", tile.ErrDataFormat, len(samples), width, height)
	}
	return &ElevationGrid{width: width, height: height, samples: samples, circular: circular}, nil
}

func (g *ElevationGrid) Width() int     { return g.width }
func (g *ElevationGrid) Height() int    { return g.height }
func (g *ElevationGrid) Circular() bool { return g.circular }

func (g *ElevationGrid) Sample(row, col int) int16 {
	row, col = wrapIndex(row, g.height, false), wrapIndex(col, g.width, g.circular)
	return g.samples[row*g.width+col]
}

// wrapIndex maps i into [0, n): modulo n when circular, clamped otherwise.
func wrapIndex(i, n int, circular bool) int {
	if circular {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	return max(0, min(n-1, i))
}
