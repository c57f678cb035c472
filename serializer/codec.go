package serializer

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/eak1mov/go-skytiles/tile"
	"golang.org/x/image/draw"
)

// Codec encodes tile images to bytes and back. Serializers treat the
// encoding as opaque.
type Codec interface {
	// Extension is the file extension without the dot, substituted for {ext} in templates.
	Extension() string
	Encode(w io.Writer, img image.Image) error
	Decode(r io.Reader) (image.Image, error)
}

type PNGCodec struct {
	CompressionLevel png.CompressionLevel
}

func (PNGCodec) Extension() string { return "png" }

func (c PNGCodec) Encode(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: c.CompressionLevel}
	return enc.Encode(w, img)
}

func (PNGCodec) Decode(r io.Reader) (image.Image, error) {
	return png.Decode(r)
}

// JPEGCodec drops the alpha channel. Quality 0 means jpeg.DefaultQuality.
type JPEGCodec struct {
	Quality int
}

func (JPEGCodec) Extension() string { return "jpg" }

func (c JPEGCodec) Encode(w io.Writer, img image.Image) error {
	quality := c.Quality
	if quality == 0 {
		quality = jpeg.DefaultQuality
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

func (JPEGCodec) Decode(r io.Reader) (image.Image, error) {
	return jpeg.Decode(r)
}

// CodecByName returns the codec for "png", "jpg" or "jpeg".
func CodecByName(name string) (Codec, error) {
	switch name {
	case "png":
		return PNGCodec{}, nil
	case "jpg", "jpeg":
		return JPEGCodec{}, nil
	}
	return nil, fmt.Errorf("%w: unknown image codec %q", tile.ErrInvalidArgument, name)
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba
	}
	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Rect, img, b.Min, draw.Src)
	return nrgba
}
