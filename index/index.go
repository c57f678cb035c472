// Package index exports the tile location table of a container as a flat
// little endian array, portable to other languages and utilities.
package index

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/eak1mov/go-skytiles/tile"
)

// Item represents a single record in the index, mapping a tile to its
// location (Offset, Length) in the container file.
type Item struct {
	Level  uint32
	X      uint32
	Y      uint32
	Length uint32
	Offset uint64
}

// ItemSize is the encoded size of an Item in bytes.
var ItemSize = binary.Size(Item{})

func (i Item) TileID() tile.ID {
	return tile.ID{Level: i.Level, X: i.X, Y: i.Y}
}

func (i Item) TileLocation() tile.Location {
	return tile.Location{Offset: i.Offset, Length: uint64(i.Length)}
}

func WriteAll(items []Item, writer io.Writer) error {
	return tile.IOError(binary.Write(writer, binary.LittleEndian, items))
}

func ReadAll(indexData []byte) ([]Item, error) {
	if len(indexData)%ItemSize != 0 {
		return nil, fmt.Errorf("%w: index of %d bytes is not a multiple of %d", tile.ErrDataFormat, len(indexData), ItemSize)
	}
	items := make([]Item, len(indexData)/ItemSize)

	err := binary.Read(bytes.NewReader(indexData), binary.LittleEndian, items)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tile.ErrDataFormat, err)
	}
	for _, item := range items {
		if !item.TileID().Valid() {
			return nil, fmt.Errorf("%w: invalid tile %v in index", tile.ErrDataFormat, item.TileID())
		}
	}

	return items, nil
}

// Export streams every location of r to writer, in the order r visits them,
// and returns the number of items written.
func Export(r tile.LocationVisitor, writer io.Writer) (int, error) {
	bw := bufio.NewWriter(writer)
	n := 0
	err := r.VisitLocations(func(tileID tile.ID, location tile.Location) error {
		if location.Length > uint64(^uint32(0)) {
			return fmt.Errorf("%w: tile %v is too large for the index", tile.ErrDataFormat, tileID)
		}
		n++
		item := Item{Level: tileID.Level, X: tileID.X, Y: tileID.Y, Length: uint32(location.Length), Offset: location.Offset}
		return tile.IOError(binary.Write(bw, binary.LittleEndian, &item))
	})
	if err != nil {
		return n, err
	}
	return n, tile.IOError(bw.Flush())
}
