// Package serializer converts tile payloads to bytes and stores them at
// canonical per-tile paths.
package serializer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/eak1mov/go-skytiles/folder"
	"github.com/eak1mov/go-skytiles/tile"
)

const (
	DefaultImageTemplate = `Pyramid\{0}\{2}\L{0}X{1}Y{2}.{ext}`
	DefaultDemTemplate   = `Pyramid\{0}\{2}\DL{0}X{1}Y{2}.dem`
)

// DemSize is the number of samples along one edge of a DEM tile.
// Neighbouring tiles share their edge samples.
const DemSize = 33

// DemSamples is the number of samples in a DEM tile.
const DemSamples = DemSize * DemSize

type options struct {
	reader tile.Reader
	writer tile.Writer
	logger *slog.Logger
}

type Option func(*options)

// WithStorage replaces the folder of loose files with other tile storage,
// for example a bolt scratch store. Paths are still computed from the template.
func WithStorage(r tile.Reader, w tile.Writer) Option {
	return func(o *options) {
		o.reader, o.writer = r, w
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

type base struct {
	pattern folder.Pattern
	options
}

func newBase(rootDir, template string, opts []Option) (base, error) {
	pattern, err := folder.ParsePattern(template)
	if err != nil {
		return base{}, err
	}
	b := base{pattern: pattern, options: options{logger: slog.New(slog.DiscardHandler)}}
	for _, opt := range opts {
		opt(&b.options)
	}
	if b.reader == nil {
		b.reader, _ = folder.NewReader(rootDir, template)
	}
	if b.writer == nil {
		b.writer, _ = folder.NewWriter(rootDir, template)
	}
	return b, nil
}

// PathFor renders the template for the tile, with separators as written in the template.
func (b *base) PathFor(tileID tile.ID) string {
	return b.pattern.Format(tileID)
}

// Reader exposes the encoded tiles, for packing them into a container.
func (b *base) Reader() tile.Reader {
	return b.reader
}

func (b *base) Finalize() error {
	return b.writer.Finalize()
}

// ImageSerializer stores image tiles encoded by a Codec.
type ImageSerializer struct {
	base
	codec Codec
}

// NewImageSerializer creates a serializer writing under rootDir. The
// template may contain {ext}, replaced by the codec extension.
func NewImageSerializer(rootDir, template string, codec Codec, opts ...Option) (*ImageSerializer, error) {
	if codec == nil {
		return nil, fmt.Errorf("%w: nil image codec", tile.ErrInvalidArgument)
	}
	template = strings.ReplaceAll(template, "{ext}", codec.Extension())
	b, err := newBase(rootDir, template, opts)
	if err != nil {
		return nil, err
	}
	return &ImageSerializer{base: b, codec: codec}, nil
}

func (s *ImageSerializer) Marshal(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", tile.ErrInvalidArgument)
	}
	var buf bytes.Buffer
	if err := s.codec.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %w", tile.ErrInvalidArgument, err)
	}
	return buf.Bytes(), nil
}

func (s *ImageSerializer) Unmarshal(data []byte) (*image.NRGBA, error) {
	img, err := s.codec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tile.ErrDataFormat, err)
	}
	return toNRGBA(img), nil
}

func (s *ImageSerializer) Serialize(tileID tile.ID, img image.Image) error {
	data, err := s.Marshal(img)
	if err != nil {
		return err
	}
	s.logger.Debug("skytiles: write image tile", "tile", tileID, "bytes", len(data))
	return s.writer.WriteTile(tileID, data)
}

// Deserialize returns nil with no error when the tile has no data.
func (s *ImageSerializer) Deserialize(tileID tile.ID) (*image.NRGBA, error) {
	data, err := s.reader.ReadTile(tileID)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return s.Unmarshal(data)
}

// DemSerializer stores elevation tiles as DemSamples little endian int16
// values in row-major order, with no header.
type DemSerializer struct {
	base
}

func NewDemSerializer(rootDir, template string, opts ...Option) (*DemSerializer, error) {
	b, err := newBase(rootDir, template, opts)
	if err != nil {
		return nil, err
	}
	return &DemSerializer{base: b}, nil
}

func MarshalDem(samples []int16) ([]byte, error) {
	if len(samples) != DemSamples {
		return nil, fmt.Errorf("%w: dem tile has %d samples, want %d", tile.ErrInvalidArgument, len(samples), DemSamples)
	}
	return binary.Append(make([]byte, 0, 2*DemSamples), binary.LittleEndian, samples)
}

func UnmarshalDem(data []byte) ([]int16, error) {
	if len(data) != 2*DemSamples {
		return nil, fmt.Errorf("%w: dem tile has %d bytes, want %d", tile.ErrDataFormat, len(data), 2*DemSamples)
	}
	samples := make([]int16, DemSamples)
	if _, err := binary.Decode(data, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("%w: %w", tile.ErrDataFormat, err)
	}
	return samples, nil
}

func (s *DemSerializer) Serialize(tileID tile.ID, samples []int16) error {
	data, err := MarshalDem(samples)
	if err != nil {
		return err
	}
	s.logger.Debug("skytiles: write dem tile", "tile", tileID)
	return s.writer.WriteTile(tileID, data)
}

// Deserialize returns nil with no error when the tile has no data.
func (s *DemSerializer) Deserialize(tileID tile.ID) ([]int16, error) {
	data, err := s.reader.ReadTile(tileID)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return UnmarshalDem(data)
}
