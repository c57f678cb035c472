package grid

import (
	"fmt"
	"math"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/projection"
	"github.com/eak1mov/go-skytiles/tile"
)

// ProjectedMap places a SourceGrid on the sphere: the grid covers the
// boundary in the given source projection, with samples at pixel centres.
// Columns wrap around iff the boundary spans 360 degrees of longitude.
type ProjectedMap struct {
	grid     SourceGrid
	boundary geo.Boundary
	kind     projection.Kind
	circular bool

	// projected latitude of the north and south edges
	top, bottom float64
}

func NewProjectedMap(g SourceGrid, boundary geo.Boundary, kind projection.Kind) (*ProjectedMap, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil source grid", tile.ErrInvalidArgument)
	}
	if err := boundary.Validate(); err != nil {
		return nil, err
	}
	if kind != projection.KindEquirectangular && kind != projection.KindMercator {
		return nil, fmt.Errorf("%w: source projection %v", tile.ErrInvalidArgument, kind)
	}
	circular := boundary.SpansFullLongitude()
	if g.Circular() && !circular {
		return nil, fmt.Errorf("%w: circular grid on boundary %v narrower than 360 degrees", tile.ErrInvalidArgument, boundary)
	}
	m := &ProjectedMap{grid: g, boundary: boundary, kind: kind, circular: circular}
	m.top, m.bottom = m.projectLat(boundary.North), m.projectLat(boundary.South)
	if m.top <= m.bottom {
		return nil, fmt.Errorf("%w: boundary %v has no height", tile.ErrInvalidArgument, boundary)
	}
	return m, nil
}

func (m *ProjectedMap) Grid() SourceGrid       { return m.grid }
func (m *ProjectedMap) Boundary() geo.Boundary { return m.boundary }

func (m *ProjectedMap) projectLat(lat float64) float64 {
	if m.kind == projection.KindMercator {
		lat = math.Max(-projection.MercatorMaxLat, math.Min(projection.MercatorMaxLat, lat))
		phi := lat * math.Pi / 180
		return math.Log(math.Tan(math.Pi/4 + phi/2))
	}
	return lat
}

// InRange reports whether the point lies inside the grid footprint.
func (m *ProjectedMap) InRange(lon, lat float64) bool {
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return false
	}
	return m.boundary.Contains(geo.Point{X: lon, Y: lat})
}

// Index returns the fractional grid position of the point. Integer
// positions are pixel centres.
func (m *ProjectedMap) Index(lon, lat float64) (row, col float64) {
	width := m.boundary.Width()
	if m.boundary.SpansFullLongitude() {
		width = 360
	}
	col = m.boundary.LonOffset(lon)/width*float64(m.grid.Width()) - 0.5
	row = (m.top-m.projectLat(lat))/(m.top-m.bottom)*float64(m.grid.Height()) - 0.5
	return row, col
}

// column maps a column index into the grid.
func (m *ProjectedMap) column(col int) int {
	return wrapIndex(col, m.grid.Width(), m.circular)
}

// bilinear splits a fractional position into the four neighbouring indices and weights.
func bilinear(row, col float64) (r0, c0 int, fr, fc float64) {
	r, c := math.Floor(row), math.Floor(col)
	return int(r), int(c), row - r, col - c
}
