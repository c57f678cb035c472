package main

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-skytiles/boltstore"
	"github.com/eak1mov/go-skytiles/config"
	"github.com/eak1mov/go-skytiles/mbtiles"
	"github.com/eak1mov/go-skytiles/plate"
	"github.com/eak1mov/go-skytiles/plate/format"
	"github.com/eak1mov/go-skytiles/projection"
	"github.com/eak1mov/go-skytiles/pyramid"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 32))
	for y := range 32 {
		for x := range 64 {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(4 * x), G: uint8(8 * y), B: 90, A: 255})
		}
	}
	path := filepath.Join(dir, "world.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func waitRun(h *pyramid.Handle, _ int64) pyramid.Result {
	return h.Wait()
}

func TestRunJob(t *testing.T) {
	for _, scratch := range []string{"", "scratch.bolt"} {
		t.Run("scratch="+scratch, func(t *testing.T) {
			dir := t.TempDir()
			jobPath := filepath.Join(dir, "job.toml")
			require.NoError(t, os.WriteFile(jobPath, []byte(`
name = "World"
projection = "toast"
max_level = 2
tile_size = 16
workers = 2

[source]
path = "`+filepath.ToSlash(writeSource(t, dir))+`"

[output]
dir = "`+filepath.ToSlash(filepath.Join(dir, "out"))+`"
plate = "world.plate"
mbtiles = "world.mbtiles"
scratch = "`+scratch+`"
`), 0o644))
			job, err := config.Load(jobPath)
			require.NoError(t, err)

			// a tile left over from an earlier run must not be packed
			stale := tile.ID{Level: 2, X: 1, Y: 3}
			if scratch != "" {
				store, err := boltstore.Open(filepath.Join(dir, "out", scratch))
				require.NoError(t, err)
				require.NoError(t, store.WriteTile(tile.ID{Level: 3}, []byte("stale")))
				require.NoError(t, store.WriteTile(stale, []byte("stale")))
				require.NoError(t, store.Close())
			}

			var events []string
			report := func(step pyramid.Step, status pyramid.Status) {
				events = append(events, step.String()+" "+status.String())
			}
			result, err := runJob(context.Background(), job, report, waitRun)
			require.NoError(t, err)
			require.Equal(t, pyramid.StateCompleted, result.State)
			require.Equal(t, uint64(1+4+16), result.TilesWritten)
			require.Equal(t, []string{
				"load source started", "load source completed",
				"build pyramid started", "build pyramid completed",
				"thumbnail started", "thumbnail completed",
				"pack plate started", "pack plate completed",
				"manifest started", "manifest completed",
			}, events)

			out := filepath.Join(dir, "out")
			r, err := plate.NewFileReader(filepath.Join(out, "world.plate"))
			require.NoError(t, err)
			defer r.Close()
			info := r.Info()
			require.Equal(t, projection.KindToast, info.Projection)
			require.Equal(t, format.TileTypePng, info.TileType)
			require.Equal(t, uint64(21), info.AddressedTiles)

			var manifest pyramid.Manifest
			metadata, err := r.ReadMetadata()
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(metadata, &manifest))
			require.Equal(t, "World", manifest.Name)
			require.Equal(t, projection.KindToast, manifest.Projection)
			require.Equal(t, `Pyramid\{0}\{2}\L{0}X{1}Y{2}.png`, manifest.TileTemplate)
			require.Equal(t, "thumbnail.png", manifest.Thumbnail)
			require.FileExists(t, filepath.Join(out, "manifest.json"))

			thumbnail, err := os.ReadFile(filepath.Join(out, manifest.Thumbnail))
			require.NoError(t, err)
			root, err := r.ReadTile(tile.ID{})
			require.NoError(t, err)
			require.Equal(t, root, thumbnail)

			mb, err := mbtiles.NewReader(filepath.Join(out, "world.mbtiles"))
			require.NoError(t, err)
			defer mb.Close()
			leaf, err := mb.ReadTile(stale)
			require.NoError(t, err)
			want, err := r.ReadTile(stale)
			require.NoError(t, err)
			require.NotEmpty(t, want)
			require.NotEqual(t, []byte("stale"), want)
			require.Equal(t, want, leaf)

			if scratch != "" {
				store, err := boltstore.Open(filepath.Join(out, scratch))
				require.NoError(t, err)
				defer store.Close()
				n, err := store.Count()
				require.NoError(t, err)
				require.Equal(t, 21, n)
			}

			_, err = os.Stat(filepath.Join(out, "Pyramid"))
			require.Equal(t, scratch == "", err == nil, "loose files: %v", err)
		})
	}
}

func TestGenerateOverrides(t *testing.T) {
	job := &config.Job{}
	c := &generateCmd{maxLevel: 25}
	require.Error(t, c.apply(job))

	jobPath := filepath.Join(t.TempDir(), "job.toml")
	require.NoError(t, os.WriteFile(jobPath, []byte("name = \"x\"\nmax_level = 5\n[source]\npath = \"a.png\"\n"), 0o644))
	job, err := config.Load(jobPath)
	require.NoError(t, err)
	require.NoError(t, (&generateCmd{maxLevel: -1}).apply(job))
	require.Equal(t, uint32(5), *job.MaxLevel)
	require.NoError(t, (&generateCmd{maxLevel: 0}).apply(job))
	require.Equal(t, uint32(0), *job.MaxLevel)

	b, err := parseBoundary("170,10,-170,-10")
	require.NoError(t, err)
	require.Equal(t, 170.0, b.West)
	_, err = parseBoundary("1,2,3")
	require.Error(t, err)

	require.Equal(t, "plate", deduceFormat("", "a/b.plate"))
	require.Equal(t, "mbtiles", deduceFormat("", "b.MBTILES"))
	require.Equal(t, "folder", deduceFormat("", "tiles"))
	require.Equal(t, "bolt", deduceFormat("bolt", "tiles"))
}
