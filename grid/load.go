package grid

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"

	"github.com/eak1mov/go-skytiles/tile"
	"github.com/shirou/gopsutil/v3/mem"
)

type loaderOptions struct {
	circular    bool
	byteOrder   binary.ByteOrder
	memoryLimit uint64
	logger      *slog.Logger
}

type LoadOption func(*loaderOptions)

// WithCircular marks the loaded grid as wrapping horizontally.
func WithCircular(circular bool) LoadOption {
	return func(o *loaderOptions) {
		o.circular = circular
	}
}

// WithByteOrder sets the byte order of raw elevation files (default little endian).
// SRTM .hgt files are big endian.
func WithByteOrder(order binary.ByteOrder) LoadOption {
	return func(o *loaderOptions) {
		o.byteOrder = order
	}
}

// WithMemoryLimit replaces the available system memory probe with a fixed budget in bytes.
func WithMemoryLimit(bytes uint64) LoadOption {
	return func(o *loaderOptions) {
		o.memoryLimit = bytes
	}
}

func WithLogger(logger *slog.Logger) LoadOption {
	return func(o *loaderOptions) {
		o.logger = logger
	}
}

func newLoaderOptions(opts []LoadOption) *loaderOptions {
	o := &loaderOptions{
		byteOrder: binary.LittleEndian,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// reserve fails with ErrOutOfMemory when a raster of the given size cannot fit.
func (o *loaderOptions) reserve(width, height, bytesPerSample int) error {
	need := uint64(width) * uint64(height) * uint64(bytesPerSample)
	limit := o.memoryLimit
	if limit == 0 {
		stat, err := mem.VirtualMemory()
		if err != nil {
			o.logger.Debug("skytiles: memory probe failed", "error", err)
			return nil
		}
		limit = stat.Available
	}
	if need > limit {
		return fmt.Errorf("%w: %dx%d raster needs %d bytes, %d available", tile.ErrOutOfMemory, width, height, need, limit)
	}
	return nil
}

// LoadImage decodes a PNG or JPEG file into an ImageGrid.
func LoadImage(path string, opts ...LoadOption) (*ImageGrid, error) {
	o := newLoaderOptions(opts)

	f, err := os.Open(path)
	if err != nil {
		return nil, tile.IOError(err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tile.ErrDataFormat, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: image %s is empty", tile.ErrDataFormat, path)
	}
	// decoded pixels plus the NRGBA copy
	if err := o.reserve(cfg.Width, cfg.Height, 8); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, tile.IOError(err)
	}
	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tile.ErrDataFormat, err)
	}
	o.logger.Debug("skytiles: image loaded", "path", path, "format", format, "width", cfg.Width, "height", cfg.Height)
	return NewImageGrid(img, o.circular), nil
}

// LoadElevation reads a headerless raw file of width*height int16 samples.
func LoadElevation(path string, width, height int, opts ...LoadOption) (*ElevationGrid, error) {
	o := newLoaderOptions(opts)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: elevation grid size %dx%d", tile.ErrInvalidArgument, width, height)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, tile.IOError(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, tile.IOError(err)
	}
	if want := int64(width) * int64(height) * 2; info.Size() != want {
		return nil, fmt.Errorf("%w: %s has %d bytes, want %d", tile.ErrDataFormat, path, info.Size(), want)
	}
	if err := o.reserve(width, height, 2); err != nil {
		return nil, err
	}

	samples := make([]int16, width*height)
	if err := binary.Read(bufio.NewReader(f), o.byteOrder, samples); err != nil {
		return nil, tile.IOError(err)
	}
	o.logger.Debug("skytiles: elevation loaded", "path", path, "width", width, "height", height)
	return NewElevationGrid(width, height, samples, o.circular)
}
