package format_test

import (
	"errors"
	"testing"

	"github.com/eak1mov/go-skytiles/plate/format"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, tileID tile.ID) {
	t.Helper()
	tileCode, err := format.EncodeTileID(tileID)
	require.NoError(t, err)
	got, err := format.DecodeTileID(tileCode)
	require.NoError(t, err)
	if diff := cmp.Diff(tileID, got); diff != "" {
		t.Errorf("DecodeTileID(EncodeTileID(%v)) mismatch (-want+got):\n%v", tileID, diff)
	}
}

func TestEncodeDecodeTileID(t *testing.T) {
	for level := range 8 {
		for x := range 1 << level {
			for y := range 1 << level {
				roundTrip(t, tile.ID{Level: uint32(level), X: uint32(x), Y: uint32(y)})
			}
		}
	}
	for level := range uint32(tile.MaxLevel + 1) {
		roundTrip(t, tile.ID{Level: level, X: 1<<level - 1, Y: 1<<level - 1})
		roundTrip(t, tile.ID{Level: level, X: 1<<level - 1})
	}
}

func TestTileCodeOrder(t *testing.T) {
	root, err := format.EncodeTileID(tile.ID{})
	require.NoError(t, err)
	require.Zero(t, root)

	// all tiles of a level come before the next level
	last, err := format.EncodeTileID(tile.ID{Level: 2, X: 3, Y: 0})
	require.NoError(t, err)
	first, err := format.EncodeTileID(tile.ID{Level: 3})
	require.NoError(t, err)
	require.Equal(t, uint64(21), first)
	require.Less(t, last, first)
}

func TestTileCodeErrors(t *testing.T) {
	for _, tileID := range []tile.ID{
		{Level: 1, X: 2},
		{Level: 3, Y: 8},
		{Level: tile.MaxLevel + 1},
	} {
		_, err := format.EncodeTileID(tileID)
		require.True(t, errors.Is(err, tile.ErrInvalidArgument), "%v: err = %v", tileID, err)
	}

	// levels 0..MaxLevel hold (4^32-1)/3 tiles
	limit := ^uint64(0) / 3
	_, err := format.DecodeTileID(limit - 1)
	require.NoError(t, err)
	for _, tileCode := range []uint64{limit, limit + 1, 1 << 63, ^uint64(0)} {
		_, err := format.DecodeTileID(tileCode)
		require.True(t, errors.Is(err, tile.ErrDataFormat), "%d: err = %v", tileCode, err)
	}
}
