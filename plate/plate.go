// Package plate packs a tile pyramid into a single indexed file and reads
// tiles back from it by address.
package plate

import (
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/plate/format"
	"github.com/eak1mov/go-skytiles/projection"
)

// Info describes the pyramid stored in a plate file.
type Info struct {
	Projection projection.Kind
	TileType   format.TileType
	Boundary   geo.Boundary
	MinLevel   uint32
	MaxLevel   uint32

	AddressedTiles uint64
	TileEntries    uint64
	TileContents   uint64
}

func infoFromHeader(h *format.Header) Info {
	return Info{
		Projection:     projection.Kind(h.Projection),
		TileType:       h.TileType,
		Boundary:       h.Boundary(),
		MinLevel:       uint32(h.MinLevel),
		MaxLevel:       uint32(h.MaxLevel),
		AddressedTiles: h.AddressedTilesCount,
		TileEntries:    h.TileEntriesCount,
		TileContents:   h.TileContentsCount,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%v %v levels %d..%d %v, %d tiles (%d unique)",
		i.Projection, i.TileType, i.MinLevel, i.MaxLevel, i.Boundary, i.AddressedTiles, i.TileContents)
}

type writerOptions struct {
	metadata   []byte
	projection projection.Kind
	tileType   format.TileType
	boundary   geo.Boundary
	logger     *slog.Logger
}

type WriterOption func(*writerOptions)

// WithMetadata stores an opaque blob, for example a JSON manifest, next to the tiles.
func WithMetadata(metadata []byte) WriterOption {
	return func(o *writerOptions) {
		o.metadata = metadata
	}
}

// WithPyramid records how the tiles were produced.
func WithPyramid(kind projection.Kind, tileType format.TileType, boundary geo.Boundary) WriterOption {
	return func(o *writerOptions) {
		o.projection, o.tileType, o.boundary = kind, tileType, boundary
	}
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(o *writerOptions) {
		o.logger = logger
	}
}

func nopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
