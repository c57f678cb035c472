package grid_test

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/grid"
	"github.com/eak1mov/go-skytiles/projection"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func stripes(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(10 * x), G: uint8(10 * y), B: 7, A: 255})
		}
	}
	return img
}

func TestCircularWrap(t *testing.T) {
	img := stripes(3, 2)
	circular := grid.NewImageGrid(img, true)
	clamped := grid.NewImageGrid(img, false)
	for row := range 2 {
		require.Equal(t, circular.Sample(row, 0), circular.Sample(row, 3))
		require.Equal(t, circular.Sample(row, 2), circular.Sample(row, -1))
		require.Equal(t, clamped.Sample(row, 2), clamped.Sample(row, 3))
		require.Equal(t, clamped.Sample(row, 0), clamped.Sample(row, -5))
	}
	require.Equal(t, circular.Sample(1, 1), circular.Sample(7, 1))

	elev, err := grid.NewElevationGrid(3, 1, []int16{1, 2, 3}, true)
	require.NoError(t, err)
	require.Equal(t, elev.Sample(0, 0), elev.Sample(0, 3))
	require.Equal(t, int16(3), elev.Sample(0, -1))

	_, err = grid.NewElevationGrid(3, 1, []int16{1, 2}, true)
	require.True(t, errors.Is(err, tile.ErrDataFormat), "err = %v", err)
}

func TestImageGridOffsetOrigin(t *testing.T) {
	img := stripes(4, 4).SubImage(image.Rect(1, 1, 3, 3))
	g := grid.NewImageGrid(img, false)
	require.Equal(t, 2, g.Width())
	require.Equal(t, color.NRGBA{R: 10, G: 10, B: 7, A: 255}, g.Sample(0, 0))
}

func TestProjectedMapIndex(t *testing.T) {
	g := grid.NewImageGrid(stripes(4, 2), true)
	m, err := grid.NewProjectedMap(g, geo.World(), projection.KindEquirectangular)
	require.NoError(t, err)

	row, col := m.Index(-135, 45)
	require.InDelta(t, 0, row, 1e-9)
	require.InDelta(t, 0, col, 1e-9)
	row, col = m.Index(135, -45)
	require.InDelta(t, 1, row, 1e-9)
	require.InDelta(t, 3, col, 1e-9)

	_, err = grid.NewProjectedMap(g, geo.World(), projection.KindToast)
	require.True(t, errors.Is(err, tile.ErrInvalidArgument), "err = %v", err)
	_, err = grid.NewProjectedMap(nil, geo.World(), projection.KindMercator)
	require.True(t, errors.Is(err, tile.ErrInvalidArgument), "err = %v", err)

	merc, err := grid.NewProjectedMap(g, geo.World(), projection.KindMercator)
	require.NoError(t, err)
	row, _ = merc.Index(0, 0)
	require.InDelta(t, 0.5, row, 1e-9)
}

func TestWrapFollowsBoundary(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{B: 255, A: 255})

	regional := geo.Boundary{West: 0, North: 45, East: 90, South: 0}
	_, err := grid.NewProjectedMap(grid.NewImageGrid(img, true), regional, projection.KindEquirectangular)
	require.True(t, errors.Is(err, tile.ErrInvalidArgument), "err = %v", err)

	m, err := grid.NewProjectedMap(grid.NewImageGrid(img, false), regional, projection.KindEquirectangular)
	require.NoError(t, err)
	colors, err := grid.NewImageColorMap(m)
	require.NoError(t, err)
	// the east edge must not blend with the west edge
	require.Equal(t, color.NRGBA{B: 255, A: 255}, colors.ColorAt(89.9, 20))

	m, err = grid.NewProjectedMap(grid.NewImageGrid(img, false), geo.World(), projection.KindEquirectangular)
	require.NoError(t, err)
	colors, err = grid.NewImageColorMap(m)
	require.NoError(t, err)
	seam := colors.ColorAt(179.9, 0)
	require.Greater(t, seam.R, uint8(100), "seam = %v", seam)
	require.Greater(t, seam.B, uint8(100), "seam = %v", seam)
}

func TestImageColorMap(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	red := color.NRGBA{R: 255, A: 255}
	for y := range 2 {
		for x := range 2 {
			img.SetNRGBA(x, y, red)
		}
	}
	m, err := grid.NewProjectedMap(grid.NewImageGrid(img, false), geo.Boundary{West: 0, North: 10, East: 10, South: 0}, projection.KindEquirectangular)
	require.NoError(t, err)
	colors, err := grid.NewImageColorMap(m)
	require.NoError(t, err)

	for _, p := range []geo.Point{{X: 5, Y: 5}, {X: 0, Y: 10}, {X: 10, Y: 0}, {X: 2.5, Y: 7.5}} {
		if diff := cmp.Diff(red, colors.ColorAt(p.X, p.Y)); diff != "" {
			t.Errorf("ColorAt(%v) mismatch (-want+got):\n%v", p, diff)
		}
	}
	require.Equal(t, color.NRGBA{}, colors.ColorAt(20, 5))
	require.Equal(t, color.NRGBA{}, colors.ColorAt(5, -1))

	_, err = grid.NewElevationValueMap(m)
	require.True(t, errors.Is(err, tile.ErrInvalidArgument), "err = %v", err)
}

func TestElevationValueMap(t *testing.T) {
	g, err := grid.NewElevationGrid(2, 1, []int16{0, 100}, true)
	require.NoError(t, err)
	m, err := grid.NewProjectedMap(g, geo.World(), projection.KindEquirectangular)
	require.NoError(t, err)
	values, err := grid.NewElevationValueMap(m)
	require.NoError(t, err)

	for _, tc := range []struct {
		lon, lat float64
		want     float64
	}{
		{-90, 0, 0},
		{90, 30, 100},
		{0, -60, 50},
		{180, 0, 50},
		{-180, 0, 50},
		{-135, 0, 25},
	} {
		require.InDelta(t, tc.want, values.ValueAt(tc.lon, tc.lat), 1e-9, "ValueAt(%v, %v)", tc.lon, tc.lat)
	}

	regional, err := grid.NewElevationGrid(2, 1, []int16{0, 100}, false)
	require.NoError(t, err)
	partial, err := grid.NewProjectedMap(regional, geo.Boundary{West: 0, North: 10, East: 10, South: 0}, projection.KindEquirectangular)
	require.NoError(t, err)
	noFill, _ := grid.NewElevationValueMap(partial)
	require.True(t, math.IsNaN(noFill.ValueAt(50, 5)))
	fill, _ := grid.NewElevationValueMap(partial, grid.WithFill(-1))
	require.Equal(t, -1.0, fill.ValueAt(50, 5))
}

func TestReliefColorMap(t *testing.T) {
	samples := make([]int16, 8*8)
	for row := range 8 {
		for col := range 8 {
			samples[row*8+col] = int16(200 * col)
		}
	}
	g, err := grid.NewElevationGrid(8, 8, samples, false)
	require.NoError(t, err)
	m, err := grid.NewProjectedMap(g, geo.Boundary{West: 0, North: 1, East: 1, South: 0}, projection.KindEquirectangular)
	require.NoError(t, err)
	relief, err := grid.NewReliefColorMap(m)
	require.NoError(t, err)

	inside := relief.ColorAt(0.5, 0.5)
	require.Equal(t, uint8(255), inside.A)
	require.Equal(t, color.NRGBA{}, relief.ColorAt(2, 0.5))
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, stripes(5, 3)))
	require.NoError(t, f.Close())

	g, err := grid.LoadImage(path, grid.WithCircular(true))
	require.NoError(t, err)
	require.Equal(t, 5, g.Width())
	require.Equal(t, 3, g.Height())
	require.True(t, g.Circular())
	require.Equal(t, color.NRGBA{R: 40, G: 20, B: 7, A: 255}, g.Sample(2, 4))

	_, err = grid.LoadImage(path, grid.WithMemoryLimit(16))
	require.True(t, errors.Is(err, tile.ErrOutOfMemory), "err = %v", err)

	_, err = grid.LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	require.True(t, errors.Is(err, tile.ErrIO), "err = %v", err)
	require.True(t, tile.IsNotExist(err))
}

func TestLoadElevation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "N00E000.hgt")
	want := []int16{-5, 0, 300, 8848, -32768, 32767}
	data, err := binary.Append(nil, binary.BigEndian, want)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	g, err := grid.LoadElevation(path, 3, 2, grid.WithByteOrder(binary.BigEndian))
	require.NoError(t, err)
	for i, v := range want {
		require.Equal(t, v, g.Sample(i/3, i%3))
	}

	_, err = grid.LoadElevation(path, 4, 2)
	require.True(t, errors.Is(err, tile.ErrDataFormat), "err = %v", err)
	_, err = grid.LoadElevation(path, 3, 2, grid.WithMemoryLimit(4))
	require.True(t, errors.Is(err, tile.ErrOutOfMemory), "err = %v", err)
}
