package pyramid

import (
	"math"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/projection"
)

// Manifest describes a finished dataset for the clients that load it.
type Manifest struct {
	Name         string
	Thumbnail    string
	TileTemplate string
	MaxLevel     uint32
	Projection   projection.Kind
	Boundary     geo.Boundary
}

// ManifestWriter emits the external descriptor of a dataset.
type ManifestWriter interface {
	WriteManifest(m Manifest) error
}

// SuggestMaxLevel returns the lowest level at which the tiles are at least
// as detailed as a source image sourceWidth pixels wide spanning the boundary.
func SuggestMaxLevel(boundary geo.Boundary, sourceWidth, tileSize int) uint32 {
	width := boundary.Width()
	if boundary.SpansFullLongitude() || width == 0 {
		width = 360
	}
	if sourceWidth <= 0 || tileSize <= 0 {
		return 0
	}
	worldPixels := float64(sourceWidth) * 360 / width
	tilesPerRow := math.Ceil(worldPixels / float64(tileSize))
	if tilesPerRow <= 1 {
		return 0
	}
	return uint32(math.Ceil(math.Log2(tilesPerRow)))
}
