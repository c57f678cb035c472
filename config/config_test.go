package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-skytiles/config"
	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/projection"
	"github.com/eak1mov/go-skytiles/serializer"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func writeJob(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	job, err := config.Load(writeJob(t, `
name = "Earth"

[source]
path = "world.png"
`))
	require.NoError(t, err)

	want := &config.Job{
		Name:       "Earth",
		Projection: "toast",
		TileSize:   256,
		Source: config.Source{
			Path:       "world.png",
			Kind:       config.SourceImage,
			Projection: "equirectangular",
			ByteOrder:  "little",
			Boundary:   config.Boundary{West: -180, North: 90, East: 180, South: -90},
		},
		Boundary: config.Boundary{West: -180, North: 90, East: 180, South: -90},
		Output: config.Output{
			Dir:           ".",
			ImageFormat:   "png",
			JPEGQuality:   90,
			ImageTemplate: serializer.DefaultImageTemplate,
			DemTemplate:   serializer.DefaultDemTemplate,
		},
	}
	if diff := cmp.Diff(want, job); diff != "" {
		t.Errorf("Load mismatch (-want+got):\n%v", diff)
	}
	require.Equal(t, projection.KindToast, job.ProjectionKind())
	require.Equal(t, projection.KindEquirectangular, job.SourceProjectionKind())
	require.Equal(t, geo.World(), job.Boundary.Geo())
}

func TestOverrides(t *testing.T) {
	t.Parallel()

	job, err := config.Load(writeJob(t, `
name = "Alps"
projection = "mercator"
max_level = 9
min_level = 3
workers = 4

[source]
path = "N46E010.hgt"
kind = "elevation"
width = 3601
height = 3601
byte_order = "big"
boundary = { west = 10, north = 47, east = 11, south = 46 }

[boundary]
west = 10
north = 47
east = 11
south = 46

[output]
dir = "alps"
image_format = "jpg"
mbtiles = "alps.mbtiles"
`))
	require.NoError(t, err)
	require.Equal(t, projection.KindMercator, job.ProjectionKind())
	require.Equal(t, config.SourceElevation, job.Source.Kind)
	require.Equal(t, 3601, job.Source.Width)
	require.Equal(t, geo.Boundary{West: 10, North: 47, East: 11, South: 46}, job.Boundary.Geo())
	require.NotNil(t, job.MaxLevel)
	require.Equal(t, uint32(9), *job.MaxLevel)
	require.Equal(t, "alps.mbtiles", job.Output.MBTiles)
	require.Equal(t, 256, job.TileSize)
}

func TestExplicitLevelZero(t *testing.T) {
	t.Parallel()

	job, err := config.Load(writeJob(t, "name = \"x\"\nmax_level = 0\n[source]\npath = \"a.png\"\n"))
	require.NoError(t, err)
	require.NotNil(t, job.MaxLevel)
	require.Zero(t, *job.MaxLevel)

	job, err = config.Load(writeJob(t, "name = \"x\"\n[source]\npath = \"a.png\"\n"))
	require.NoError(t, err)
	require.Nil(t, job.MaxLevel)
}

func TestInvalid(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		content string
	}{
		{"MissingName", "[source]\npath = \"a.png\"\n"},
		{"MissingSource", "name = \"x\"\n"},
		{"BadProjection", "name = \"x\"\nprojection = \"polar\"\n[source]\npath = \"a.png\"\n"},
		{"TooDeep", "name = \"x\"\nmax_level = 25\n[source]\npath = \"a.png\"\n"},
		{"LevelsInverted", "name = \"x\"\nmax_level = 2\nmin_level = 3\n[source]\npath = \"a.png\"\n"},
		{"ElevationWithoutSize", "name = \"x\"\n[source]\npath = \"a.raw\"\nkind = \"elevation\"\n"},
		{"BadBoundary", "name = \"x\"\n[source]\npath = \"a.png\"\n[boundary]\nnorth = -10\nsouth = 10\n"},
		{"UnknownKey", "name = \"x\"\ncolour = \"red\"\n[source]\npath = \"a.png\"\n"},
		{"Syntax", "name = \n"},
		{"LevelsInvertedAtZero", "name = \"x\"\nmax_level = 0\nmin_level = 1\n[source]\npath = \"a.png\"\n"},
		{"CircularKey", "name = \"x\"\n[source]\npath = \"a.png\"\ncircular = true\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeJob(t, tc.content))
			require.True(t, errors.Is(err, tile.ErrInvalidArgument), "err = %v", err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.True(t, errors.Is(err, tile.ErrIO), "err = %v", err)
}
