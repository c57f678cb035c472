// Package tile provides common tile interfaces and types.
package tile

import "fmt"

// MaxLevel is the deepest level addressable by ID.
const MaxLevel = 31

// ID addresses a tile in a quad-tree pyramid. Level 0 is the coarsest level,
// tiles of a level form a 2^Level x 2^Level grid.
type ID struct {
	Level uint32
	X     uint32
	Y     uint32
}

func (t ID) Valid() bool {
	return t.Level <= MaxLevel && t.X < (1<<t.Level) && t.Y < (1<<t.Level)
}

func (t ID) String() string {
	return fmt.Sprintf("L%dX%dY%d", t.Level, t.X, t.Y)
}

// Parent returns the tile one level up containing t. The root is its own parent.
func (t ID) Parent() ID {
	if t.Level == 0 {
		return t
	}
	return ID{Level: t.Level - 1, X: t.X / 2, Y: t.Y / 2}
}

// Children returns the four tiles one level down, in quadrant order
// (top-left, top-right, bottom-left, bottom-right).
func (t ID) Children() [4]ID {
	level, x, y := t.Level+1, t.X*2, t.Y*2
	return [4]ID{
		{Level: level, X: x, Y: y},
		{Level: level, X: x + 1, Y: y},
		{Level: level, X: x, Y: y + 1},
		{Level: level, X: x + 1, Y: y + 1},
	}
}

// Quadrant returns the position of t inside its parent, matching Children order.
func (t ID) Quadrant() int {
	return int(t.X&1) + 2*int(t.Y&1)
}

// GridSize returns the number of tiles along one axis at the given level.
func GridSize(level uint32) uint32 {
	return 1 << level
}

// Writer defines an interface for writing tiles to a tileset.
type Writer interface {
	// WriteTile writes a single tile to the tileset.
	WriteTile(tileID ID, tileData []byte) error

	// Finalize completes the writing process: flushes buffers, writes header and indices.
	// It must be called before closing the Writer.
	Finalize() error
}

type Reader interface {
	// ReadTile reads a single tile from the tileset.
	// It returns the tile data or an error if the tile cannot be read.
	// If the tile does not exist, it returns an empty slice with no error.
	ReadTile(tileID ID) ([]byte, error)
}

type Visitor interface {
	// VisitTiles visits all tiles in the tileset, calling the visitor for each.
	// It returns an error if visiting fails.
	// Order of tiles, upfront cpu and memory consumption are implementation-defined.
	VisitTiles(visitor func(ID, []byte) error) error
}

// Location represents the absolute location of tile data inside a tileset file.
type Location struct {
	Offset uint64
	Length uint64
}

type LocationReader interface {
	ReadLocation(tileID ID) (Location, error)
}

type LocationVisitor interface {
	VisitLocations(visitor func(ID, Location) error) error
}
