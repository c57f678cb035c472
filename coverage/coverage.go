// Package coverage enumerates the tiles whose footprint intersects a geographic boundary.
package coverage

import (
	"cmp"
	"fmt"
	"iter"
	"slices"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/projection"
	"github.com/eak1mov/go-skytiles/tile"
)

// MaxLevel is the deepest level a coverage can be built for.
const MaxLevel = 24

// maxStoredTiles bounds the number of tiles kept for boundaries that do not
// map to tile rectangles.
const maxStoredTiles = 1 << 26

// Coverage is the set of tiles, per level 0..MaxLevel(), intersecting a boundary.
// Every tile of a level > 0 has its parent in the previous level.
type Coverage struct {
	kind     projection.Kind
	boundary geo.Boundary
	maxLevel uint32

	// rectangular projections
	ranges []levelRange

	// TOAST with a partial boundary, sorted by (Y, X)
	tiles [][]tile.ID
}

type span struct {
	from, to uint32 // inclusive
}

type levelRange struct {
	xs []span
	ys span
}

// New computes the coverage of boundary for the projection down to maxLevel.
func New(p projection.Projection, boundary geo.Boundary, maxLevel uint32) (*Coverage, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil projection", tile.ErrInvalidArgument)
	}
	if err := boundary.Validate(); err != nil {
		return nil, err
	}
	if maxLevel > MaxLevel {
		return nil, fmt.Errorf("%w: level %d exceeds %d", tile.ErrOutOfMemory, maxLevel, MaxLevel)
	}

	c := &Coverage{kind: p.Kind(), boundary: boundary, maxLevel: maxLevel}
	switch {
	case p.Kind() == projection.KindToast && !boundary.IsWorld():
		toast, ok := p.(projection.Toast)
		if !ok {
			toast = projection.NewToast()
		}
		tiles, err := toastTiles(toast, boundary, maxLevel)
		if err != nil {
			return nil, err
		}
		c.tiles = tiles
	case p.Kind() == projection.KindToast:
		c.ranges = make([]levelRange, maxLevel+1)
		for level := range c.ranges {
			n := tile.GridSize(uint32(level))
			c.ranges[level] = levelRange{xs: []span{{0, n - 1}}, ys: span{0, n - 1}}
		}
	default:
		c.ranges = make([]levelRange, maxLevel+1)
		for level := range c.ranges {
			c.ranges[level] = rectRange(p, boundary, uint32(level))
		}
	}
	return c, nil
}

func rectRange(p projection.Projection, b geo.Boundary, level uint32) levelRange {
	n := tile.GridSize(level)
	nw := p.PointToTile(level, geo.Point{X: b.West, Y: b.North})
	se := p.PointToTile(level, geo.Point{X: b.East, Y: b.South})
	r := levelRange{ys: span{nw.Y, se.Y}}
	switch {
	case b.SpansFullLongitude():
		r.xs = []span{{0, n - 1}}
	case b.West <= b.East:
		r.xs = []span{{nw.X, se.X}}
	case nw.X <= se.X:
		// crossing the antimeridian but both edges fall in the same column
		r.xs = []span{{0, n - 1}}
	default:
		r.xs = []span{{0, se.X}, {nw.X, n - 1}}
	}
	return r
}

func (c *Coverage) Kind() projection.Kind  { return c.kind }
func (c *Coverage) Boundary() geo.Boundary { return c.boundary }
func (c *Coverage) MaxLevel() uint32       { return c.maxLevel }

// Count returns the number of tiles at the level. For TOAST it counts tiles,
// not faces: a tile holds eight faces, see ToastFaces.
func (c *Coverage) Count(level uint32) uint64 {
	if level > c.maxLevel {
		return 0
	}
	if c.tiles != nil {
		return uint64(len(c.tiles[level]))
	}
	r := c.ranges[level]
	var count uint64
	for _, xs := range r.xs {
		count += uint64(xs.to-xs.from+1) * uint64(r.ys.to-r.ys.from+1)
	}
	return count
}

// Tiles iterates the tiles of a level row by row.
func (c *Coverage) Tiles(level uint32) iter.Seq[tile.ID] {
	return func(yield func(tile.ID) bool) {
		if level > c.maxLevel {
			return
		}
		if c.tiles != nil {
			for _, id := range c.tiles[level] {
				if !yield(id) {
					return
				}
			}
			return
		}
		r := c.ranges[level]
		for y := r.ys.from; y <= r.ys.to; y++ {
			for _, xs := range r.xs {
				for x := xs.from; x <= xs.to; x++ {
					if !yield(tile.ID{Level: level, X: x, Y: y}) {
						return
					}
				}
			}
		}
	}
}

func (c *Coverage) Contains(id tile.ID) bool {
	if id.Level > c.maxLevel || !id.Valid() {
		return false
	}
	if c.tiles != nil {
		_, found := slices.BinarySearchFunc(c.tiles[id.Level], id, compareRowMajor)
		return found
	}
	r := c.ranges[id.Level]
	if id.Y < r.ys.from || id.Y > r.ys.to {
		return false
	}
	for _, xs := range r.xs {
		if id.X >= xs.from && id.X <= xs.to {
			return true
		}
	}
	return false
}

func compareRowMajor(a, b tile.ID) int {
	return cmp.Or(cmp.Compare(a.Level, b.Level), cmp.Compare(a.Y, b.Y), cmp.Compare(a.X, b.X))
}
