package format

import (
	"fmt"
	"math/bits"

	"github.com/eak1mov/go-skytiles/tile"
	"github.com/google/hilbert"
)

// levelStart is the code of the first tile of a level, i.e. the number of
// tiles on all coarser levels. levelStart(tile.MaxLevel+1) relies on the
// shift wrapping to zero and still yields (2^64-1)/3.
func levelStart(level uint32) uint64 {
	return (uint64(1)<<(2*level) - 1) / 3
}

// codeLimit is one past the last code of tile.MaxLevel.
var codeLimit = levelStart(tile.MaxLevel + 1)

func curve(level uint32) (*hilbert.Hilbert, error) {
	h, err := hilbert.NewHilbert(1 << level)
	if err != nil {
		return nil, fmt.Errorf("%w: level %d: %w", tile.ErrInvalidArgument, level, err)
	}
	return h, nil
}

// EncodeTileID returns the tile code: levelStart of the tile level plus the
// Hilbert index of the tile inside its level. Codes order tiles level by level.
func EncodeTileID(tileID tile.ID) (uint64, error) {
	if !tileID.Valid() {
		return 0, fmt.Errorf("%w: invalid tile %v", tile.ErrInvalidArgument, tileID)
	}
	h, err := curve(tileID.Level)
	if err != nil {
		return 0, err
	}
	index, err := h.MapInverse(int(tileID.X), int(tileID.Y))
	if err != nil {
		return 0, fmt.Errorf("%w: tile %v: %w", tile.ErrInvalidArgument, tileID, err)
	}
	return levelStart(tileID.Level) + uint64(index), nil
}

// DecodeTileID is the inverse of EncodeTileID. Codes past tile.MaxLevel are
// reported as ErrDataFormat since they can only come from a damaged file.
func DecodeTileID(tileCode uint64) (tile.ID, error) {
	if tileCode >= codeLimit {
		return tile.ID{}, fmt.Errorf("%w: tile code %d beyond level %d", tile.ErrDataFormat, tileCode, tile.MaxLevel)
	}
	// 3*levelStart(L)+1 == 4^L, so the bit length of 3*code+1 gives the level
	level := uint32(bits.Len64(3*tileCode+1)-1) / 2
	h, err := curve(level)
	if err != nil {
		return tile.ID{}, err
	}
	x, y, err := h.Map(int(tileCode - levelStart(level)))
	if err != nil {
		return tile.ID{}, fmt.Errorf("%w: tile code %d: %w", tile.ErrDataFormat, tileCode, err)
	}
	return tile.ID{Level: level, X: uint32(x), Y: uint32(y)}, nil
}
