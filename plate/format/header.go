// Package format defines the on-disk layout of plate files.
//
// A plate file starts with a fixed little endian Header followed by the
// compressed root directory; both fit in the first 16 KiB, so a single read
// is enough to locate the top levels of the pyramid. Metadata, tile data and
// leaf directories follow. Directory entries are sorted by tile code, the
// position of a tile on a Hilbert curve running through all levels.
package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/tile"
)

type Compression uint8

const (
	CompressionUnknown Compression = iota
	CompressionNone
	CompressionGzip
)

// TileType tells readers how to interpret tile payloads.
type TileType uint8

const (
	TileTypeUnknown TileType = iota
	TileTypePng
	TileTypeJpeg
	TileTypeDem
)

func (t TileType) String() string {
	switch t {
	case TileTypePng:
		return "png"
	case TileTypeJpeg:
		return "jpg"
	case TileTypeDem:
		return "dem"
	}
	return "unknown"
}

type Header struct {
	Magic               [8]byte
	Version             uint16
	Projection          uint8 // projection.Kind
	TileType            TileType
	InternalCompression Compression
	TileCompression     Compression
	MinLevel            uint8
	MaxLevel            uint8
	RootOffset          uint64
	RootLength          uint64
	MetadataOffset      uint64
	MetadataLength      uint64
	LeafDirectoryOffset uint64
	LeafDirectoryLength uint64
	TileDataOffset      uint64
	TileDataLength      uint64
	AddressedTilesCount uint64
	TileEntriesCount    uint64
	TileContentsCount   uint64
	WestE7              int32
	NorthE7             int32
	EastE7              int32
	SouthE7             int32
}

const (
	Version = 1

	HeaderLength = 120

	// the root directory must be contained in the first 16 KiB
	HeaderRootDirMaxLength = 16 << 10
	RootDirOffset          = HeaderLength
	RootDirMaxLength       = HeaderRootDirMaxLength - HeaderLength
)

var Magic = [8]byte{'S', 'K', 'Y', 'P', 'L', 'A', 'T', 'E'}

func SerializeHeader(header *Header) []byte {
	buffer := make([]byte, 0, HeaderLength)
	buffer, _ = binary.Append(buffer, binary.LittleEndian, header)
	return buffer
}

func DeserializeHeader(buffer []byte) (*Header, error) {
	header := Header{}
	if err := binary.Read(bytes.NewReader(buffer), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: invalid header: %w", tile.ErrDataFormat, err)
	}
	if header.Magic != Magic {
		return nil, fmt.Errorf("%w: not a plate file", tile.ErrDataFormat)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: unsupported plate version %d", tile.ErrDataFormat, header.Version)
	}
	if header.RootLength > HeaderRootDirMaxLength || header.RootOffset > HeaderRootDirMaxLength-header.RootLength {
		return nil, fmt.Errorf("%w: root directory outside of the first %d bytes", tile.ErrDataFormat, HeaderRootDirMaxLength)
	}
	for _, section := range []struct {
		name           string
		offset, length uint64
	}{
		{"metadata", header.MetadataOffset, header.MetadataLength},
		{"leaf directory", header.LeafDirectoryOffset, header.LeafDirectoryLength},
		{"tile data", header.TileDataOffset, header.TileDataLength},
	} {
		if section.offset > math.MaxInt64 || section.length > math.MaxInt64-section.offset {
			return nil, fmt.Errorf("%w: %s section %d+%d out of range", tile.ErrDataFormat, section.name, section.offset, section.length)
		}
	}
	return &header, nil
}

// SectionRange resolves a span relative to a section of sectionLength bytes
// starting at sectionOffset into an absolute file offset.
func SectionRange(sectionOffset, sectionLength, offset, length uint64) (uint64, error) {
	if offset > sectionLength || length > sectionLength-offset {
		return 0, fmt.Errorf("%w: span %d+%d outside of a %d byte section", tile.ErrDataFormat, offset, length, sectionLength)
	}
	return sectionOffset + offset, nil
}

// SetBoundary stores b with 1e-7 degree precision.
func (h *Header) SetBoundary(b geo.Boundary) {
	h.WestE7, h.NorthE7 = toE7(b.West), toE7(b.North)
	h.EastE7, h.SouthE7 = toE7(b.East), toE7(b.South)
}

func (h *Header) Boundary() geo.Boundary {
	return geo.Boundary{
		West:  fromE7(h.WestE7),
		North: fromE7(h.NorthE7),
		East:  fromE7(h.EastE7),
		South: fromE7(h.SouthE7),
	}
}

func toE7(v float64) int32 {
	return int32(math.Round(v * 1e7))
}

func fromE7(v int32) float64 {
	return float64(v) / 1e7
}
