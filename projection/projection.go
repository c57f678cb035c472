// Package projection maps between tile pixel space and geographic coordinates.
//
// All projections address tiles on a 2^level x 2^level grid (see tile.ID).
// Positions inside a tile are fractions u, v in [0, 1], u growing to the right
// and v growing down.
package projection

import (
	"fmt"
	"math"
	"strings"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/tile"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindEquirectangular
	KindMercator
	KindToast
)

func (k Kind) String() string {
	switch k {
	case KindEquirectangular:
		return "equirectangular"
	case KindMercator:
		return "mercator"
	case KindToast:
		return "toast"
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// ParseKind accepts the names returned by Kind.String, case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "equirectangular", "equirect", "plate-carree", "sky":
		return KindEquirectangular, nil
	case "mercator":
		return KindMercator, nil
	case "toast":
		return KindToast, nil
	}
	return KindUnknown, fmt.Errorf("%w: unknown projection %q", tile.ErrInvalidArgument, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

type Projection interface {
	Kind() Kind

	// TileToPoint maps a fractional position inside a tile to a geographic point.
	// Out-of-range input is clamped, it never panics.
	TileToPoint(tileID tile.ID, u, v float64) geo.Point

	// PointToTile returns the tile at the given level containing the point.
	PointToTile(level uint32, p geo.Point) tile.ID
}

func New(kind Kind) (Projection, error) {
	switch kind {
	case KindEquirectangular:
		return Equirectangular{}, nil
	case KindMercator:
		return Mercator{}, nil
	case KindToast:
		return NewToast(), nil
	}
	return nil, fmt.Errorf("%w: projection %v", tile.ErrInvalidArgument, kind)
}

// PixelCenter returns the fractional position of the centre of pixel px in a tile of the given size.
func PixelCenter(px, size int) float64 {
	return (float64(px) + 0.5) / float64(size)
}

// PixelCenters returns the centres of all pixels along one axis of a tile.
func PixelCenters(size int) []float64 {
	coords := make([]float64, size)
	for i := range coords {
		coords[i] = PixelCenter(i, size)
	}
	return coords
}

// GridPoints returns the positions of a samples x samples lattice spanning
// the tile edge to edge, as used by elevation tiles.
func GridPoints(samples int) []float64 {
	coords := make([]float64, samples)
	for i := range coords {
		coords[i] = float64(i) / float64(samples-1)
	}
	return coords
}

type pointGridder interface {
	pointGrid(tileID tile.ID, coords []float64) []geo.Point
}

// PointGrid maps every (coords[col], coords[row]) position of a tile to a
// geographic point. The result is row-major.
func PointGrid(p Projection, tileID tile.ID, coords []float64) []geo.Point {
	if g, ok := p.(pointGridder); ok {
		return g.pointGrid(tileID, coords)
	}
	points := make([]geo.Point, 0, len(coords)*len(coords))
	for _, v := range coords {
		for _, u := range coords {
			points = append(points, p.TileToPoint(tileID, u, v))
		}
	}
	return points
}

// clampTile brings a tile address into the valid grid of its level.
func clampTile(tileID tile.ID) tile.ID {
	if tileID.Level > tile.MaxLevel {
		tileID.Level = tile.MaxLevel
	}
	n := tile.GridSize(tileID.Level)
	tileID.X = min(tileID.X, n-1)
	tileID.Y = min(tileID.Y, n-1)
	return tileID
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// cellIndex returns floor(f * n) clamped to [0, n-1].
func cellIndex(f float64, n uint32) uint32 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	i := math.Floor(f * float64(n))
	if i >= float64(n) {
		return n - 1
	}
	return uint32(i)
}
