package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/eak1mov/go-skytiles/boltstore"
	"github.com/eak1mov/go-skytiles/config"
	"github.com/eak1mov/go-skytiles/coverage"
	"github.com/eak1mov/go-skytiles/creator"
	"github.com/eak1mov/go-skytiles/grid"
	"github.com/eak1mov/go-skytiles/mbtiles"
	"github.com/eak1mov/go-skytiles/plate"
	"github.com/eak1mov/go-skytiles/plate/format"
	"github.com/eak1mov/go-skytiles/projection"
	"github.com/eak1mov/go-skytiles/pyramid"
	"github.com/eak1mov/go-skytiles/serializer"
	"github.com/eak1mov/go-skytiles/tile"
)

// pipeline holds what a job needs once its source is loaded.
type pipeline struct {
	creator  creator.Creator
	reader   tile.Reader
	finalize func() error
	tileType format.TileType
	template string
	ext      string
	// source width in tile-sized pixels, for picking a max level
	sourceWidth int
	tileSize    int
}

// runJob executes all steps of a job. track follows the pyramid run, for
// example with a progress bar.
func runJob(ctx context.Context, job *config.Job, report pyramid.ProgressFunc, track func(*pyramid.Handle, int64) pyramid.Result) (pyramid.Result, error) {
	proj, err := projection.New(job.ProjectionKind())
	if err != nil {
		return pyramid.Result{}, err
	}
	if err := os.MkdirAll(job.Output.Dir, 0o755); err != nil {
		return pyramid.Result{}, tile.IOError(err)
	}

	var store *boltstore.Store
	if job.Output.Scratch != "" {
		store, err = boltstore.Open(filepath.Join(job.Output.Dir, job.Output.Scratch), boltstore.WithLogger(logger()))
		if err != nil {
			return pyramid.Result{}, err
		}
		defer store.Close()
		if err := store.Reset(); err != nil {
			return pyramid.Result{}, err
		}
	}

	report(pyramid.StepLoadSource, pyramid.StatusStarted)
	p, err := loadPipeline(job, proj, store)
	if err != nil {
		return pyramid.Result{}, err
	}
	report(pyramid.StepLoadSource, pyramid.StatusCompleted)

	var maxLevel uint32
	if job.MaxLevel != nil {
		maxLevel = *job.MaxLevel
	} else {
		maxLevel = min(coverage.MaxLevel, pyramid.SuggestMaxLevel(job.Source.Boundary.Geo(), p.sourceWidth, p.tileSize))
		log.Printf("using max level %d", maxLevel)
	}
	minLevel := min(job.MinLevel, maxLevel)

	cov, err := coverage.New(proj, job.Boundary.Geo(), maxLevel)
	if err != nil {
		return pyramid.Result{}, err
	}
	var total uint64
	for level := range maxLevel + 1 {
		total += cov.Count(level)
	}

	opts := []pyramid.Option{pyramid.WithLogger(logger())}
	if job.Workers > 0 {
		opts = append(opts, pyramid.WithWorkers(job.Workers))
	}
	gen, err := pyramid.NewGenerator(p.creator, cov, opts...)
	if err != nil {
		return pyramid.Result{}, err
	}
	h, err := gen.Start(ctx, maxLevel)
	if err != nil {
		return pyramid.Result{}, err
	}
	h.OnProgress(report)
	result := track(h, int64(total))
	if result.Err != nil {
		return result, result.Err
	}
	if err := p.finalize(); err != nil {
		return result, err
	}

	manifest := pyramid.Manifest{
		Name:         job.Name,
		TileTemplate: p.template,
		MaxLevel:     maxLevel,
		Projection:   proj.Kind(),
		Boundary:     job.Boundary.Geo(),
	}

	if p.ext != "" {
		h.Step(pyramid.StepThumbnail, pyramid.StatusStarted)
		thumbnail, err := p.reader.ReadTile(tile.ID{})
		if err != nil {
			return result, err
		}
		if len(thumbnail) > 0 {
			manifest.Thumbnail = "thumbnail." + p.ext
			if err := os.WriteFile(filepath.Join(job.Output.Dir, manifest.Thumbnail), thumbnail, 0o644); err != nil {
				return result, tile.IOError(err)
			}
		}
		h.Step(pyramid.StepThumbnail, pyramid.StatusCompleted)
	}

	metadata, err := json.Marshal(manifest)
	if err != nil {
		return result, err
	}
	var packOpts []plate.PackOption
	if job.Workers > 0 {
		packOpts = append(packOpts, plate.WithPackWorkers(job.Workers))
	}

	if job.Output.Plate != "" {
		h.Step(pyramid.StepPackPlate, pyramid.StatusStarted)
		w, err := plate.NewWriter(filepath.Join(job.Output.Dir, job.Output.Plate),
			plate.WithMetadata(metadata),
			plate.WithPyramid(proj.Kind(), p.tileType, job.Boundary.Geo()),
			plate.WithLogger(logger()))
		if err != nil {
			return result, err
		}
		defer w.Close()
		stats, err := plate.Pack(ctx, p.reader, cov, minLevel, maxLevel, w, packOpts...)
		if err != nil {
			return result, err
		}
		log.Printf("packed %d of %d tiles into %s", stats.Copied, stats.Addressed, job.Output.Plate)
		h.Step(pyramid.StepPackPlate, pyramid.StatusCompleted)
	}

	if job.Output.MBTiles != "" {
		if proj.Kind() != projection.KindMercator {
			log.Printf("warning: mbtiles clients expect mercator tiles, got %v", proj.Kind())
		}
		w, err := mbtiles.NewWriter(filepath.Join(job.Output.Dir, job.Output.MBTiles),
			mbtiles.WithMetadata(mbtiles.Metadata(job.Name, p.tileType.String(), job.Boundary.Geo(), minLevel, maxLevel)),
			mbtiles.WithLogger(logger()))
		if err != nil {
			return result, err
		}
		defer w.Close()
		if _, err := plate.Pack(ctx, p.reader, cov, minLevel, maxLevel, w, packOpts...); err != nil {
			return result, err
		}
	}

	h.Step(pyramid.StepManifest, pyramid.StatusStarted)
	if err := writeManifest(jsonManifest{filepath.Join(job.Output.Dir, "manifest.json")}, manifest); err != nil {
		return result, err
	}
	h.Step(pyramid.StepManifest, pyramid.StatusCompleted)
	return result, nil
}

func loadPipeline(job *config.Job, proj projection.Projection, store *boltstore.Store) (*pipeline, error) {
	var serializerOpts []serializer.Option
	serializerOpts = append(serializerOpts, serializer.WithLogger(logger()))
	if store != nil {
		serializerOpts = append(serializerOpts, serializer.WithStorage(store, store))
	}
	loadOpts := []grid.LoadOption{grid.WithCircular(job.Source.Boundary.Geo().SpansFullLongitude()), grid.WithLogger(logger())}
	creatorOpts := []creator.Option{creator.WithTileSize(job.TileSize), creator.WithLogger(logger())}
	sourceKind := job.SourceProjectionKind()

	if job.Source.Kind == config.SourceImage {
		g, err := grid.LoadImage(job.Source.Path, loadOpts...)
		if err != nil {
			return nil, err
		}
		m, err := grid.NewProjectedMap(g, job.Source.Boundary.Geo(), sourceKind)
		if err != nil {
			return nil, err
		}
		colors, err := grid.NewImageColorMap(m)
		if err != nil {
			return nil, err
		}
		return imagePipeline(job, proj, colors, g.Width(), serializerOpts, creatorOpts)
	}

	order := binary.ByteOrder(binary.LittleEndian)
	if job.Source.ByteOrder == "big" {
		order = binary.BigEndian
	}
	g, err := grid.LoadElevation(job.Source.Path, job.Source.Width, job.Source.Height, append(loadOpts, grid.WithByteOrder(order))...)
	if err != nil {
		return nil, err
	}
	m, err := grid.NewProjectedMap(g, job.Source.Boundary.Geo(), sourceKind)
	if err != nil {
		return nil, err
	}

	if job.Source.Kind == config.SourceRelief {
		colors, err := grid.NewReliefColorMap(m)
		if err != nil {
			return nil, err
		}
		return imagePipeline(job, proj, colors, g.Width(), serializerOpts, creatorOpts)
	}

	values, err := grid.NewElevationValueMap(m, grid.WithFill(0))
	if err != nil {
		return nil, err
	}
	s, err := serializer.NewDemSerializer(job.Output.Dir, job.Output.DemTemplate, serializerOpts...)
	if err != nil {
		return nil, err
	}
	c, err := creator.NewDemCreator(proj, values, s, creatorOpts...)
	if err != nil {
		return nil, err
	}
	return &pipeline{
		creator:     c,
		reader:      s.Reader(),
		finalize:    s.Finalize,
		tileType:    format.TileTypeDem,
		template:    job.Output.DemTemplate,
		sourceWidth: g.Width(),
		tileSize:    serializer.DemSize - 1,
	}, nil
}

func imagePipeline(job *config.Job, proj projection.Projection, colors grid.ColorMap, width int, serializerOpts []serializer.Option, creatorOpts []creator.Option) (*pipeline, error) {
	var codec serializer.Codec = serializer.PNGCodec{}
	tileType := format.TileTypePng
	if job.Output.ImageFormat != "png" {
		codec = serializer.JPEGCodec{Quality: job.Output.JPEGQuality}
		tileType = format.TileTypeJpeg
	}
	s, err := serializer.NewImageSerializer(job.Output.Dir, job.Output.ImageTemplate, codec, serializerOpts...)
	if err != nil {
		return nil, err
	}
	c, err := creator.NewImageCreator(proj, colors, s, creatorOpts...)
	if err != nil {
		return nil, err
	}
	return &pipeline{
		creator:     c,
		reader:      s.Reader(),
		finalize:    s.Finalize,
		tileType:    tileType,
		template:    strings.ReplaceAll(job.Output.ImageTemplate, "{ext}", codec.Extension()),
		ext:         codec.Extension(),
		sourceWidth: width,
		tileSize:    job.TileSize,
	}, nil
}

// jsonManifest writes the manifest as an indented JSON file.
type jsonManifest struct {
	path string
}

func (j jsonManifest) WriteManifest(m pyramid.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return tile.IOError(os.WriteFile(j.path, append(data, '\n'), 0o644))
}

func writeManifest(w pyramid.ManifestWriter, m pyramid.Manifest) error {
	if err := w.WriteManifest(m); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
