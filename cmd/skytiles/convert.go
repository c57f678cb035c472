package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/mbtiles"
	"github.com/eak1mov/go-skytiles/plate"
	"github.com/eak1mov/go-skytiles/projection"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/google/subcommands"
)

type convertCmd struct {
	inputFormat    string
	inputPath      string
	inputTemplate  string
	outputFormat   string
	outputPath     string
	outputTemplate string
}

func (c *convertCmd) Name() string     { return "convert" }
func (c *convertCmd) Synopsis() string { return "convert between tile storage formats" }
func (c *convertCmd) Usage() string {
	return "skytiles convert -i <path> -o <path> [-if <format> -of <format> -it <template> -ot <template>]\n"
}
func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (folder, bolt, mbtiles, plate)")
	f.StringVar(&c.inputTemplate, "it", defaultTemplate, "Path template of a folder input")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (folder, bolt, mbtiles, plate)")
	f.StringVar(&c.outputTemplate, "ot", defaultTemplate, "Path template of a folder output")
}

// plateOptions carries the description of a plate or mbtiles input over to a plate output.
func plateOptions(src tileSource) ([]plate.WriterOption, error) {
	switch r := src.(type) {
	case *plate.Reader:
		metadata, err := r.ReadMetadata()
		if err != nil {
			return nil, err
		}
		info := r.Info()
		return []plate.WriterOption{
			plate.WithMetadata(metadata),
			plate.WithPyramid(info.Projection, info.TileType, info.Boundary),
		}, nil
	case *mbtiles.Reader:
		metadata, err := r.ReadMetadata()
		if err != nil {
			return nil, err
		}
		boundary := geo.Boundary{West: -180, North: projection.MercatorMaxLat, East: 180, South: -projection.MercatorMaxLat}
		if bounds, ok := metadata["bounds"]; ok {
			if _, err := fmt.Sscanf(bounds, "%g,%g,%g,%g", &boundary.West, &boundary.South, &boundary.East, &boundary.North); err != nil {
				return nil, fmt.Errorf("%w: bounds %q: %w", tile.ErrDataFormat, bounds, err)
			}
		}
		tileType, _ := parseTileType(metadata["format"])
		opts := []plate.WriterOption{plate.WithPyramid(projection.KindMercator, tileType, boundary)}
		if manifest, ok := metadata["json"]; ok {
			opts = append(opts, plate.WithMetadata([]byte(manifest)))
		}
		return opts, nil
	}
	return nil, nil
}

// mbtilesOptions describes a plate input in mbtiles metadata rows.
func mbtilesOptions(src tileSource) []mbtiles.WriterOption {
	r, ok := src.(*plate.Reader)
	if !ok {
		return nil
	}
	info := r.Info()
	metadata := mbtiles.Metadata("", info.TileType.String(), info.Boundary, info.MinLevel, info.MaxLevel)
	metadata["tiles"] = strconv.FormatUint(info.AddressedTiles, 10)
	return []mbtiles.WriterOption{mbtiles.WithMetadata(metadata)}
}

func (c *convertCmd) run() error {
	src, err := openSource(c.inputFormat, c.inputPath, c.inputTemplate)
	if err != nil {
		return err
	}
	defer closeIfCloser(src)

	plateOpts, err := plateOptions(src)
	if err != nil {
		return err
	}
	writer, err := openSink(c.outputFormat, c.outputPath, c.outputTemplate, plateOpts, mbtilesOptions(src))
	if err != nil {
		return err
	}
	defer closeIfCloser(writer)

	bar := newCountBar("converting")
	err = src.VisitTiles(func(tileID tile.ID, tileData []byte) error {
		bar.Add(1)
		return writer.WriteTile(tileID, tileData)
	})
	bar.Finish()
	fmt.Println()
	if err != nil {
		return err
	}
	return writer.Finalize()
}

func (c *convertCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" || c.outputPath == "" {
		log.Print(c.Usage())
		return subcommands.ExitUsageError
	}
	if err := c.run(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
