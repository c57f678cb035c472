package plate

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/eak1mov/go-skytiles/plate/format"
	"github.com/eak1mov/go-skytiles/tile"
)

// FileAccessFunc returns length bytes starting at offset. It must be safe
// for concurrent use.
type FileAccessFunc = func(offset, length uint64) ([]byte, error)

type readerOptions struct {
	leafCacheSize int
	logger        *slog.Logger
}

type ReaderOption func(*readerOptions)

// WithLeafCache keeps up to n decoded leaf directories in memory.
func WithLeafCache(n int) ReaderOption {
	return func(o *readerOptions) {
		o.leafCacheSize = n
	}
}

func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(o *readerOptions) {
		o.logger = logger
	}
}

// Reader serves tiles from a plate file. The root directory is decoded once
// at open. Reader is safe for concurrent use.
type Reader struct {
	readerOptions
	fileAccess FileAccessFunc
	fileCloser func() error
	header     *format.Header
	root       []format.Entry

	mu     sync.Mutex
	leaves map[uint64][]format.Entry
}

func NewFileReader(filePath string, opts ...ReaderOption) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, tile.IOError(err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, tile.IOError(err)
	}
	fileSize := uint64(stat.Size())
	fileAccess := func(offset, length uint64) ([]byte, error) {
		if offset > fileSize || length > fileSize-offset {
			return nil, fmt.Errorf("%w: read %d bytes at %d past end of file", tile.ErrDataFormat, length, offset)
		}
		buffer := make([]byte, length)
		if _, err := file.ReadAt(buffer, int64(offset)); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: read %d bytes at %d past end of file", tile.ErrDataFormat, length, offset)
			}
			return nil, tile.IOError(err)
		}
		return buffer, nil
	}
	r, err := NewReader(fileAccess, opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.fileCloser = file.Close
	return r, nil
}

func NewReader(fileAccess FileAccessFunc, opts ...ReaderOption) (*Reader, error) {
	o := readerOptions{logger: nopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	headerData, err := fileAccess(0, format.HeaderLength)
	if err != nil {
		return nil, err
	}
	header, err := format.DeserializeHeader(headerData)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		readerOptions: o,
		fileAccess:    fileAccess,
		fileCloser:    func() error { return nil },
		header:        header,
		leaves:        make(map[uint64][]format.Entry),
	}
	r.root, err = r.readDirectory(header.RootOffset, header.RootLength)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("skytiles: plate opened", "tiles", header.AddressedTilesCount, "root_entries", len(r.root))
	return r, nil
}

func (r *Reader) Close() error {
	return r.fileCloser()
}

func (r *Reader) Info() Info {
	return infoFromHeader(r.header)
}

// ReadMetadata returns the blob stored with WithMetadata, or nil.
func (r *Reader) ReadMetadata() ([]byte, error) {
	if r.header.MetadataLength == 0 {
		return nil, nil
	}
	return r.fileAccess(r.header.MetadataOffset, r.header.MetadataLength)
}

func (r *Reader) tileLocation(entry format.Entry) (tile.Location, error) {
	offset, err := format.SectionRange(r.header.TileDataOffset, r.header.TileDataLength, entry.Offset, uint64(entry.Length))
	if err != nil {
		return tile.Location{}, err
	}
	return tile.Location{Offset: offset, Length: uint64(entry.Length)}, nil
}

func (r *Reader) leafOffset(entry format.Entry) (uint64, error) {
	return format.SectionRange(r.header.LeafDirectoryOffset, r.header.LeafDirectoryLength, entry.Offset, uint64(entry.Length))
}

func (r *Reader) readDirectory(dirOffset, dirLength uint64) ([]format.Entry, error) {
	dirCompressed, err := r.fileAccess(dirOffset, dirLength)
	if err != nil {
		return nil, err
	}
	dirData, err := format.Decompress(dirCompressed, r.header.InternalCompression)
	if err != nil {
		return nil, err
	}
	return format.DeserializeDirectory(dirData)
}

func (r *Reader) readLeaf(dirOffset, dirLength uint64) ([]format.Entry, error) {
	if r.leafCacheSize <= 0 {
		return r.readDirectory(dirOffset, dirLength)
	}
	r.mu.Lock()
	entries, ok := r.leaves[dirOffset]
	r.mu.Unlock()
	if ok {
		return entries, nil
	}
	entries, err := r.readDirectory(dirOffset, dirLength)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	if len(r.leaves) >= r.leafCacheSize {
		clear(r.leaves)
	}
	r.leaves[dirOffset] = entries
	r.mu.Unlock()
	return entries, nil
}

// ReadLocation returns where the payload of tileID lives in the file. An
// absent tile has a zero Location.
func (r *Reader) ReadLocation(tileID tile.ID) (tile.Location, error) {
	tileCode, err := format.EncodeTileID(tileID)
	if err != nil {
		return tile.Location{}, err
	}
	dirEntries := r.root
	for depth := 0; ; depth++ {
		entry, found := format.FindEntry(dirEntries, tileCode)
		if !found {
			return tile.Location{}, nil
		}
		if entry.RunLength > 0 {
			return r.tileLocation(entry)
		}
		if depth > 3 {
			return tile.Location{}, fmt.Errorf("%w: leaf directories nested too deep", tile.ErrDataFormat)
		}
		leafOffset, err := r.leafOffset(entry)
		if err != nil {
			return tile.Location{}, err
		}
		dirEntries, err = r.readLeaf(leafOffset, uint64(entry.Length))
		if err != nil {
			return tile.Location{}, err
		}
	}
}

// ReadTile returns the payload of tileID, or an empty slice if the plate has none.
func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	location, err := r.ReadLocation(tileID)
	if err != nil {
		return nil, err
	}
	if location.Length == 0 {
		return make([]byte, 0), nil
	}
	return r.fileAccess(location.Offset, location.Length)
}

// VisitLocations walks all tiles in tile code order.
func (r *Reader) VisitLocations(visitor func(tile.ID, tile.Location) error) error {
	var traverse func([]format.Entry, int) error
	traverse = func(dirEntries []format.Entry, depth int) error {
		for _, entry := range dirEntries {
			if entry.RunLength == 0 {
				if depth > 3 {
					return fmt.Errorf("%w: leaf directories nested too deep", tile.ErrDataFormat)
				}
				leafOffset, err := r.leafOffset(entry)
				if err != nil {
					return err
				}
				leaf, err := r.readDirectory(leafOffset, uint64(entry.Length))
				if err != nil {
					return err
				}
				if err := traverse(leaf, depth+1); err != nil {
					return err
				}
				continue
			}
			location, err := r.tileLocation(entry)
			if err != nil {
				return err
			}
			for i := range entry.RunLength {
				tileID, err := format.DecodeTileID(entry.TileCode + uint64(i))
				if err != nil {
					return err
				}
				if err := visitor(tileID, location); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return traverse(r.root, 0)
}

func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return r.VisitLocations(func(tileID tile.ID, location tile.Location) error {
		tileData, err := r.fileAccess(location.Offset, location.Length)
		if err != nil {
			return err
		}
		return visitor(tileID, tileData)
	})
}
