// Package geo provides the geographic primitives shared by projections and grids.
package geo

import (
	"fmt"
	"math"
	"slices"

	"github.com/eak1mov/go-skytiles/tile"
)

// Epsilon is the tolerance used to decide whether a boundary spans the whole longitude range.
const Epsilon = 1e-6

// Point is a fractional coordinate pair. For geographic points X is the
// longitude and Y is the latitude, both in degrees.
type Point struct {
	X float64
	Y float64
}

// Boundary is a geographic bounding box in degrees. A boundary with
// West > East crosses the antimeridian.
type Boundary struct {
	West  float64
	North float64
	East  float64
	South float64
}

// World returns the boundary of the whole sphere.
func World() Boundary {
	return Boundary{West: -180, North: 90, East: 180, South: -90}
}

func (b Boundary) String() string {
	return fmt.Sprintf("[W%g N%g E%g S%g]", b.West, b.North, b.East, b.South)
}

func (b Boundary) Validate() error {
	for _, v := range []float64{b.West, b.North, b.East, b.South} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: boundary %v is not finite", tile.ErrInvalidArgument, b)
		}
	}
	if b.North < b.South || b.North > 90 || b.South < -90 {
		return fmt.Errorf("%w: boundary %v has invalid latitudes", tile.ErrInvalidArgument, b)
	}
	return nil
}

// Width returns the longitude extent in degrees, in [0, 360].
func (b Boundary) Width() float64 {
	w := b.East - b.West
	if w > 360 {
		return 360
	}
	if w < 0 {
		w += 360
	}
	return w
}

func (b Boundary) Height() float64 {
	return b.North - b.South
}

// SpansFullLongitude reports whether the boundary covers 360 degrees of longitude.
// Grids with such a boundary wrap their last column onto the first one.
func (b Boundary) SpansFullLongitude() bool {
	return math.Abs(b.East-b.West-360) < Epsilon || b.East-b.West > 360
}

// IsWorld reports whether b covers the whole sphere.
func (b Boundary) IsWorld() bool {
	return b.SpansFullLongitude() && b.North >= 90-Epsilon && b.South <= -90+Epsilon
}

// Contains reports whether p lies inside b, edges included.
func (b Boundary) Contains(p Point) bool {
	if p.Y < b.South || p.Y > b.North {
		return false
	}
	if b.SpansFullLongitude() {
		return true
	}
	return wrap360(p.X-b.West) <= b.Width()+Epsilon
}

// Intersects reports whether b and other share at least one point.
func (b Boundary) Intersects(other Boundary) bool {
	if b.South > other.North || other.South > b.North {
		return false
	}
	if b.SpansFullLongitude() || other.SpansFullLongitude() {
		return true
	}
	d := wrap360(other.West - b.West)
	return d <= b.Width()+Epsilon || d+other.Width() >= 360-Epsilon
}

// Covers reports whether other lies entirely inside b.
func (b Boundary) Covers(other Boundary) bool {
	if other.South < b.South || other.North > b.North {
		return false
	}
	if b.SpansFullLongitude() {
		return true
	}
	if other.SpansFullLongitude() {
		return false
	}
	return wrap360(other.West-b.West)+other.Width() <= b.Width()+Epsilon
}

// LonOffset returns how many degrees east of the west edge lon lies, in [0, 360).
func (b Boundary) LonOffset(lon float64) float64 {
	return wrap360(lon - b.West)
}

// NormalizeLon maps a longitude into [-180, 180).
func NormalizeLon(lon float64) float64 {
	return wrap360(lon+180) - 180
}

// ClampLat limits a latitude to [-90, 90].
func ClampLat(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

func wrap360(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}

// BoundsOf returns the smallest boundary enclosing the points. Longitudes
// are treated as circular: the result crosses the antimeridian when that
// gives a narrower box.
func BoundsOf(points []Point) Boundary {
	if len(points) == 0 {
		return Boundary{}
	}
	b := Boundary{North: math.Inf(-1), South: math.Inf(1)}
	lons := make([]float64, 0, len(points))
	for _, p := range points {
		b.North = math.Max(b.North, p.Y)
		b.South = math.Min(b.South, p.Y)
		lons = append(lons, NormalizeLon(p.X))
	}
	slices.Sort(lons)

	// the box starts right after the largest gap between neighbouring longitudes
	gap, start := lons[0]+360-lons[len(lons)-1], 0
	for i := 1; i < len(lons); i++ {
		if d := lons[i] - lons[i-1]; d > gap {
			gap, start = d, i
		}
	}
	b.West = lons[start]
	b.East = lons[(start+len(lons)-1)%len(lons)]
	return b
}
