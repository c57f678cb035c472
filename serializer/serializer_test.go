package serializer_test

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-skytiles/serializer"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDemPathFor(t *testing.T) {
	s, err := serializer.NewDemSerializer(t.TempDir(), `Pyramid\{0}\{1}\DL{0}X{1}Y{2}.dem`)
	require.NoError(t, err)
	require.Equal(t, `Pyramid\0\0\DL0X0Y0.dem`, s.PathFor(tile.ID{}))
	require.Equal(t, `Pyramid\3\2\DL3X2Y1.dem`, s.PathFor(tile.ID{Level: 3, X: 2, Y: 1}))
}

func TestImagePathFor(t *testing.T) {
	s, err := serializer.NewImageSerializer(t.TempDir(), serializer.DefaultImageTemplate, serializer.PNGCodec{})
	require.NoError(t, err)
	require.Equal(t, `Pyramid\3\1\L3X2Y1.png`, s.PathFor(tile.ID{Level: 3, X: 2, Y: 1}))

	s, err = serializer.NewImageSerializer(t.TempDir(), serializer.DefaultImageTemplate, serializer.JPEGCodec{Quality: 90})
	require.NoError(t, err)
	require.Equal(t, `Pyramid\0\0\L0X0Y0.jpg`, s.PathFor(tile.ID{}))
}

func TestConstructionErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := serializer.NewImageSerializer(dir, serializer.DefaultImageTemplate, nil)
	require.True(t, errors.Is(err, tile.ErrInvalidArgument), "err = %v", err)
	_, err = serializer.NewImageSerializer(dir, "", serializer.PNGCodec{})
	require.True(t, errors.Is(err, tile.ErrInvalidArgument), "err = %v", err)
	_, err = serializer.NewDemSerializer(dir, "")
	require.True(t, errors.Is(err, tile.ErrInvalidArgument), "err = %v", err)
	_, err = serializer.CodecByName("webp")
	require.True(t, errors.Is(err, tile.ErrInvalidArgument), "err = %v", err)
}

func TestDemRoundTrip(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	s, err := serializer.NewDemSerializer(rootDir, serializer.DefaultDemTemplate)
	require.NoError(t, err)

	samples := make([]int16, serializer.DemSamples)
	for i := range samples {
		samples[i] = int16(i*37 - 20000)
	}
	samples[0], samples[1] = -32768, 32767

	tileID := tile.ID{Level: 3, X: 2, Y: 1}
	require.NoError(t, s.Serialize(tileID, samples))

	data, err := os.ReadFile(filepath.Join(rootDir, "Pyramid", "3", "1", "DL3X2Y1.dem"))
	require.NoError(t, err)
	require.Len(t, data, 2*serializer.DemSamples)
	require.Equal(t, []byte{0x00, 0x80, 0xff, 0x7f}, data[:4])

	got, err := s.Deserialize(tileID)
	require.NoError(t, err)
	if diff := cmp.Diff(samples, got); diff != "" {
		t.Errorf("Deserialize mismatch (-want+got):\n%v", diff)
	}

	missing, err := s.Deserialize(tile.ID{Level: 3, X: 0, Y: 0})
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestDemErrors(t *testing.T) {
	rootDir := t.TempDir()
	s, err := serializer.NewDemSerializer(rootDir, serializer.DefaultDemTemplate)
	require.NoError(t, err)

	err = s.Serialize(tile.ID{}, make([]int16, 1088))
	require.True(t, errors.Is(err, tile.ErrInvalidArgument), "err = %v", err)

	path := filepath.Join(rootDir, "Pyramid", "0", "0", "DL0X0Y0.dem")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0644))
	_, err = s.Deserialize(tile.ID{})
	require.True(t, errors.Is(err, tile.ErrDataFormat), "err = %v", err)
}

func TestImageRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := serializer.NewImageSerializer(t.TempDir(), serializer.DefaultImageTemplate, serializer.PNGCodec{})
	require.NoError(t, err)

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range 16 {
		img.SetNRGBA(i%4, i/4, color.NRGBA{R: uint8(i * 16), G: 3, B: 200, A: uint8(255 - i)})
	}
	tileID := tile.ID{Level: 1, X: 1, Y: 0}
	require.NoError(t, s.Serialize(tileID, img))

	got, err := s.Deserialize(tileID)
	require.NoError(t, err)
	if diff := cmp.Diff(img.Pix, got.Pix); diff != "" {
		t.Errorf("Deserialize mismatch (-want+got):\n%v", diff)
	}

	data, err := s.Reader().ReadTile(tileID)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	missing, err := s.Deserialize(tile.ID{Level: 1})
	require.NoError(t, err)
	require.Nil(t, missing)
}
