package format_test

import (
	"cmp"
	"errors"
	"maps"
	"slices"
	"testing"

	"github.com/eak1mov/go-skytiles/internal"
	"github.com/eak1mov/go-skytiles/plate/format"
	"github.com/eak1mov/go-skytiles/tile"
	gcmp "github.com/google/go-cmp/cmp"
)

func mustEncode(tileID tile.ID) uint64 {
	tileCode, err := format.EncodeTileID(tileID)
	if err != nil {
		panic(err)
	}
	return tileCode
}

func syntheticEntries(maxLevel, stride uint32) []format.Entry {
	tiles := internal.SyntheticTiles(maxLevel, stride)
	entries := make([]format.Entry, 0, len(tiles))
	offset := uint64(0)
	for _, tileID := range slices.SortedFunc(maps.Keys(tiles), func(a, b tile.ID) int {
		return cmp.Compare(mustEncode(a), mustEncode(b))
	}) {
		entries = append(entries, format.Entry{
			TileCode:  mustEncode(tileID),
			Offset:    offset,
			Length:    uint32(len(tiles[tileID])),
			RunLength: 1,
		})
		offset += uint64(len(tiles[tileID]))
	}
	return entries
}

func TestDirectorySerializer(t *testing.T) {
	for _, tc := range []struct {
		name     string
		maxLevel uint32
		stride   uint32
	}{
		{"Empty", 0, 1 << 30},
		{"Full5", 5, 1},
		{"Sparse8", 8, 7},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			entries := syntheticEntries(tc.maxLevel, tc.stride)
			if tc.name == "Empty" {
				entries = entries[:0]
			}
			deserialized, err := format.DeserializeDirectory(format.SerializeDirectory(entries))
			if err != nil {
				t.Errorf("DeserializeDirectory failed: %v", err)
			}
			if !gcmp.Equal(entries, deserialized) {
				t.Error("DeserializeDirectory(SerializeDirectory(input)) != input")
			}
		})
	}
}

func TestDirectoryCorrupt(t *testing.T) {
	data := format.SerializeDirectory(syntheticEntries(3, 1))
	for _, corrupt := range [][]byte{
		data[:len(data)/2],
		{0xff, 0xff, 0xff, 0xff, 0x0f},
		{1, 5, 1, 1, 0},
	} {
		if _, err := format.DeserializeDirectory(corrupt); !errors.Is(err, tile.ErrDataFormat) {
			t.Errorf("DeserializeDirectory(%v) error = %v, want ErrDataFormat", corrupt, err)
		}
	}
}

func TestSerializeAllLeaves(t *testing.T) {
	entries := syntheticEntries(9, 1)
	root, leaves := format.SerializeAll(slices.Clone(entries), format.CompressionGzip)
	if len(root) > format.RootDirMaxLength {
		t.Fatalf("root directory has %v bytes", len(root))
	}
	if len(leaves) == 0 {
		t.Fatalf("expected leaf directories for %v entries", len(entries))
	}

	rootData, err := format.Decompress(root, format.CompressionGzip)
	if err != nil {
		t.Fatal(err)
	}
	rootEntries, err := format.DeserializeDirectory(rootData)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []format.Entry{entries[0], entries[len(entries)/3], entries[len(entries)-1]} {
		leafEntry, ok := format.FindEntry(rootEntries, want.TileCode)
		if !ok || leafEntry.RunLength != 0 {
			t.Fatalf("FindEntry(root, %v) = %v, %v", want.TileCode, leafEntry, ok)
		}
		leafData, err := format.Decompress(leaves[leafEntry.Offset:leafEntry.Offset+uint64(leafEntry.Length)], format.CompressionGzip)
		if err != nil {
			t.Fatal(err)
		}
		leafEntries, err := format.DeserializeDirectory(leafData)
		if err != nil {
			t.Fatal(err)
		}
		got, ok := format.FindEntry(leafEntries, want.TileCode)
		if !ok || got != want {
			t.Errorf("FindEntry(leaf, %v) = %v, %v, want = %v", want.TileCode, got, ok, want)
		}
	}
}
