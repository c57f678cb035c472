package plate

import (
	"bufio"
	"cmp"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/plate/format"
	"github.com/eak1mov/go-skytiles/tile"
)

// Writer builds a plate file. Tiles may arrive in any order; identical
// payloads are stored once. Writer is not safe for concurrent use, wrap it
// in tile.SyncWriter when tiles come from several goroutines.
type Writer struct {
	writerOptions
	file   *os.File
	header format.Header

	tileWriter *bufio.Writer
	tileOffset uint64

	entries   []format.Entry
	locations map[[16]byte]uint32 // hash -> entry index
	contents  uint64
	minLevel  uint32
	maxLevel  uint32
}

func NewWriter(filePath string, opts ...WriterOption) (w *Writer, err error) {
	o := writerOptions{boundary: geo.World(), logger: nopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, tile.IOError(err)
	}
	defer func() {
		if err != nil {
			file.Close()
		}
	}()

	header := format.Header{}
	offset := uint64(format.HeaderRootDirMaxLength)

	if _, err := file.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, tile.IOError(err)
	}

	if o.metadata != nil {
		if _, err := file.Write(o.metadata); err != nil {
			return nil, tile.IOError(err)
		}
		header.MetadataOffset = offset
		header.MetadataLength = uint64(len(o.metadata))
		offset += header.MetadataLength
	}

	header.Magic = format.Magic
	header.Version = format.Version
	header.Projection = uint8(o.projection)
	header.TileType = o.tileType
	header.InternalCompression = format.CompressionGzip
	header.TileCompression = format.CompressionNone
	header.TileDataOffset = offset
	header.SetBoundary(o.boundary)

	return &Writer{
		writerOptions: o,
		file:          file,
		header:        header,
		tileWriter:    bufio.NewWriter(file),
		locations:     make(map[[16]byte]uint32),
		minLevel:      tile.MaxLevel,
	}, nil
}

// WriteTile appends the tile. Empty payloads mean "no data" and are skipped.
func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if w.tileWriter == nil {
		return fmt.Errorf("%w: write after finalize", tile.ErrInvalidArgument)
	}
	tileCode, err := format.EncodeTileID(tileID)
	if err != nil {
		return err
	}
	if len(tileData) == 0 {
		return nil
	}
	if uint64(len(tileData)) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: tile %v is too large (%d bytes)", tile.ErrInvalidArgument, tileID, len(tileData))
	}
	w.minLevel = min(w.minLevel, tileID.Level)
	w.maxLevel = max(w.maxLevel, tileID.Level)

	digest := md5.Sum(tileData)
	if entryIdx, exists := w.locations[digest]; exists {
		w.entries = append(w.entries, format.Entry{
			TileCode:  tileCode,
			Offset:    w.entries[entryIdx].Offset,
			Length:    w.entries[entryIdx].Length,
			RunLength: 1,
		})
		return nil
	}

	entry := format.Entry{
		TileCode:  tileCode,
		Offset:    w.tileOffset,
		Length:    uint32(len(tileData)),
		RunLength: 1,
	}

	if _, err := w.tileWriter.Write(tileData); err != nil {
		return tile.IOError(err)
	}
	w.tileOffset += uint64(len(tileData))
	w.contents++

	w.locations[digest] = uint32(len(w.entries))
	w.entries = append(w.entries, entry)
	return nil
}

// Finalize writes the directories and the header, and closes the file.
func (w *Writer) Finalize() error {
	if w.tileWriter == nil {
		return fmt.Errorf("%w: finalize called twice", tile.ErrInvalidArgument)
	}

	w.logger.Debug("skytiles: flush tile data")
	if err := w.tileWriter.Flush(); err != nil {
		return tile.IOError(err)
	}
	w.header.TileDataLength = w.tileOffset
	w.tileWriter = nil

	w.header.AddressedTilesCount = uint64(len(w.entries))
	w.header.TileContentsCount = w.contents
	if len(w.entries) > 0 {
		w.header.MinLevel, w.header.MaxLevel = uint8(w.minLevel), uint8(w.maxLevel)
	}

	w.logger.Debug("skytiles: sort entries", "count", len(w.entries))
	slices.SortFunc(w.entries, func(a, b format.Entry) int {
		return cmp.Compare(a.TileCode, b.TileCode)
	})
	if i := duplicateCode(w.entries); i >= 0 {
		tileID, err := format.DecodeTileID(w.entries[i].TileCode)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: tile %v written twice", tile.ErrInvalidArgument, tileID)
	}
	w.entries = format.CompactEntries(w.entries)
	w.header.TileEntriesCount = uint64(len(w.entries))

	w.logger.Debug("skytiles: serialize directories", "entries", len(w.entries))
	rootBytes, leavesBytes := format.SerializeAll(w.entries, w.header.InternalCompression)

	leavesOffset, err := w.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return tile.IOError(err)
	}
	if _, err := w.file.Write(leavesBytes); err != nil {
		return tile.IOError(err)
	}
	w.header.LeafDirectoryOffset = uint64(leavesOffset)
	w.header.LeafDirectoryLength = uint64(len(leavesBytes))

	if _, err := w.file.WriteAt(rootBytes, format.RootDirOffset); err != nil {
		return tile.IOError(err)
	}
	w.header.RootOffset = format.RootDirOffset
	w.header.RootLength = uint64(len(rootBytes))

	if _, err := w.file.WriteAt(format.SerializeHeader(&w.header), 0); err != nil {
		return tile.IOError(err)
	}

	if err := w.file.Close(); err != nil {
		return tile.IOError(err)
	}
	w.file = nil

	w.logger.Debug("skytiles: plate written", "tiles", w.header.AddressedTilesCount, "contents", w.contents)
	return nil
}

// Close releases the file of an unfinished writer. It is a no-op after Finalize.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func duplicateCode(entries []format.Entry) int {
	for i := 1; i < len(entries); i++ {
		if entries[i].TileCode == entries[i-1].TileCode {
			return i
		}
	}
	return -1
}
