// Package config loads pyramid jobs from TOML files.
//
// A job names one source raster, the target projection and boundary, and
// the outputs to produce:
//
//	name = "Earth at night"
//	projection = "toast"
//	max_level = 6
//
//	[source]
//	path = "night.png"
//
//	[output]
//	dir = "out"
//	plate = "night.plate"
package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/projection"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/go-playground/validator/v10"
)

type SourceKind string

const (
	SourceImage     SourceKind = "image"
	SourceElevation SourceKind = "elevation"
	SourceRelief    SourceKind = "relief"
)

type Source struct {
	Path string     `toml:"path" validate:"required"`
	Kind SourceKind `toml:"kind" default:"image" validate:"oneof=image elevation relief"`
	// Projection of the source raster, equirectangular or mercator.
	Projection string `toml:"projection" default:"equirectangular" validate:"oneof=equirectangular mercator"`
	// Raw elevation files carry no header.
	Width     int    `toml:"width" validate:"required_unless=Kind image,gte=0"`
	Height    int    `toml:"height" validate:"required_unless=Kind image,gte=0"`
	ByteOrder string `toml:"byte_order" default:"little" validate:"oneof=little big"`

	// Geographic footprint of the source raster. The raster wraps around
	// the antimeridian when the boundary is 360 degrees wide.
	Boundary Boundary `toml:"boundary"`
}

type Boundary struct {
	West  float64 `toml:"west" default:"-180" validate:"gte=-180,lte=180"`
	North float64 `toml:"north" default:"90" validate:"gte=-90,lte=90"`
	East  float64 `toml:"east" default:"180" validate:"gte=-180,lte=180"`
	South float64 `toml:"south" default:"-90" validate:"gte=-90,lte=90"`
}

func (b Boundary) Geo() geo.Boundary {
	return geo.Boundary{West: b.West, North: b.North, East: b.East, South: b.South}
}

type Output struct {
	Dir           string `toml:"dir" default:"." validate:"required"`
	ImageFormat   string `toml:"image_format" default:"png" validate:"oneof=png jpg jpeg"`
	JPEGQuality   int    `toml:"jpeg_quality" default:"90" validate:"gte=1,lte=100"`
	ImageTemplate string `toml:"image_template" default:"Pyramid\\{0}\\{2}\\L{0}X{1}Y{2}.{ext}" validate:"required"`
	DemTemplate   string `toml:"dem_template" default:"Pyramid\\{0}\\{2}\\DL{0}X{1}Y{2}.dem" validate:"required"`

	// Optional containers, relative to Dir.
	Plate   string `toml:"plate"`
	MBTiles string `toml:"mbtiles"`
	// Optional bbolt file receiving the tiles instead of loose files.
	Scratch string `toml:"scratch"`
}

type Job struct {
	Name       string `toml:"name" validate:"required"`
	Projection string `toml:"projection" default:"toast" validate:"oneof=equirectangular mercator toast"`
	// A missing MaxLevel picks a level matching the source resolution.
	MaxLevel *uint32 `toml:"max_level" validate:"omitempty,lte=24"`
	// MinLevel is the shallowest level packed into containers.
	MinLevel uint32 `toml:"min_level" validate:"lte=24"`
	TileSize int    `toml:"tile_size" default:"256" validate:"gte=8,lte=4096"`
	Workers  int    `toml:"workers" validate:"gte=0"`

	Source Source `toml:"source"`
	// Boundary limits the pyramid to a region; the whole sphere by default.
	Boundary Boundary `toml:"boundary"`
	Output   Output   `toml:"output"`
}

// ProjectionKind returns the parsed target projection.
func (j *Job) ProjectionKind() projection.Kind {
	kind, _ := projection.ParseKind(j.Projection)
	return kind
}

// SourceProjectionKind returns the parsed projection of the source raster.
func (j *Job) SourceProjectionKind() projection.Kind {
	kind, _ := projection.ParseKind(j.Source.Projection)
	return kind
}

// Load reads, defaults and validates a job file.
func Load(path string) (*Job, error) {
	job := &Job{}
	if err := defaults.Set(job); err != nil {
		return nil, err
	}
	md, err := toml.DecodeFile(path, job)
	if err != nil {
		var parseErr toml.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("%w: %s", tile.ErrInvalidArgument, parseErr.ErrorWithPosition())
		}
		return nil, tile.IOError(err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown keys %v in %s", tile.ErrInvalidArgument, undecoded, path)
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// Validate checks field constraints and the consistency of boundaries.
func (j *Job) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(j); err != nil {
		return fmt.Errorf("%w: %w", tile.ErrInvalidArgument, err)
	}
	if err := j.Boundary.Geo().Validate(); err != nil {
		return err
	}
	if err := j.Source.Boundary.Geo().Validate(); err != nil {
		return err
	}
	if j.MaxLevel != nil && j.MinLevel > *j.MaxLevel {
		return fmt.Errorf("%w: min_level %d above max_level %d", tile.ErrInvalidArgument, j.MinLevel, *j.MaxLevel)
	}
	return nil
}
