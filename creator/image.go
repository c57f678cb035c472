package creator

import (
	"context"
	"fmt"
	"image"

	"github.com/eak1mov/go-skytiles/grid"
	"github.com/eak1mov/go-skytiles/projection"
	"github.com/eak1mov/go-skytiles/serializer"
	"github.com/eak1mov/go-skytiles/tile"
	"golang.org/x/image/draw"
)

// ImageCreator renders color tiles from a ColorMap.
type ImageCreator struct {
	proj       projection.Projection
	colors     grid.ColorMap
	serializer *serializer.ImageSerializer
	coords     []float64
	options
}

func NewImageCreator(proj projection.Projection, colors grid.ColorMap, s *serializer.ImageSerializer, opts ...Option) (*ImageCreator, error) {
	if proj == nil || colors == nil || s == nil {
		return nil, fmt.Errorf("%w: image creator needs a projection, a color map and a serializer", tile.ErrInvalidArgument)
	}
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	return &ImageCreator{
		proj:       proj,
		colors:     colors,
		serializer: s,
		coords:     projection.PixelCenters(o.tileSize),
		options:    o,
	}, nil
}

// Create samples every pixel centre. Fully transparent tiles are not written.
func (c *ImageCreator) Create(ctx context.Context, tileID tile.ID) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, c.tileSize, c.tileSize))
	for i, p := range projection.PointGrid(c.proj, tileID, c.coords) {
		img.SetNRGBA(i%c.tileSize, i/c.tileSize, c.colors.ColorAt(p.X, p.Y))
	}
	if Transparent(img) {
		c.logger.Debug("skytiles: skip transparent tile", "tile", tileID)
		return false, nil
	}
	if err := c.serializer.Serialize(tileID, img); err != nil {
		return false, fmt.Errorf("create %v: %w", tileID, err)
	}
	return true, nil
}

// Aggregate composes the children on a canvas twice the tile size, leaving
// missing children transparent, and scales it down bilinearly.
func (c *ImageCreator) Aggregate(ctx context.Context, tileID tile.ID) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	size := c.tileSize
	canvas := image.NewNRGBA(image.Rect(0, 0, 2*size, 2*size))
	found := false
	for q, child := range tileID.Children() {
		img, err := c.serializer.Deserialize(child)
		if err != nil {
			return false, fmt.Errorf("aggregate %v: %w", tileID, err)
		}
		if img == nil {
			continue
		}
		found = true
		dst := image.Rect(0, 0, size, size).Add(image.Pt(q%2*size, q/2*size))
		if img.Bounds().Size() == dst.Size() {
			draw.Draw(canvas, dst, img, img.Bounds().Min, draw.Src)
		} else {
			draw.BiLinear.Scale(canvas, dst, img, img.Bounds(), draw.Src, nil)
		}
	}
	if !found {
		return false, nil
	}

	parent := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(parent, parent.Rect, canvas, canvas.Rect, draw.Src, nil)
	if err := c.serializer.Serialize(tileID, parent); err != nil {
		return false, fmt.Errorf("aggregate %v: %w", tileID, err)
	}
	return true, nil
}

// Transparent reports whether every pixel of img has zero alpha.
func Transparent(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			return false
		}
	}
	return true
}
