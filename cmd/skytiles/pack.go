package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/eak1mov/go-skytiles/coverage"
	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/plate"
	"github.com/eak1mov/go-skytiles/plate/format"
	"github.com/eak1mov/go-skytiles/projection"
	"github.com/eak1mov/go-skytiles/serializer"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/google/subcommands"
)

type packCmd struct {
	inputFormat string
	inputPath   string
	template    string
	outputPath  string
	projection  string
	boundary    string
	tileType    string
	minLevel    uint
	maxLevel    uint
}

func (c *packCmd) Name() string     { return "pack" }
func (c *packCmd) Synopsis() string { return "pack a pyramid into a plate file" }
func (c *packCmd) Usage() string {
	return "skytiles pack -i <path> -o <path> -max_level <n> [-if <format> -t <template> -projection <name> -boundary <w,n,e,s>]\n"
}
func (c *packCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (folder, bolt, mbtiles, plate)")
	f.StringVar(&c.template, "t", serializer.DefaultImageTemplate, "Path template of a folder input, {ext} is the tile type")
	f.StringVar(&c.outputPath, "o", "", "Output plate path")
	f.StringVar(&c.projection, "projection", "toast", "Projection of the pyramid")
	f.StringVar(&c.boundary, "boundary", "-180,90,180,-90", "Boundary of the pyramid as west,north,east,south")
	f.StringVar(&c.tileType, "type", "png", "Tile type (png, jpg, dem)")
	f.UintVar(&c.minLevel, "min_level", 0, "Shallowest level to pack")
	f.UintVar(&c.maxLevel, "max_level", 0, "Deepest level to pack")
}

func parseBoundary(s string) (geo.Boundary, error) {
	var b geo.Boundary
	if _, err := fmt.Sscanf(s, "%g,%g,%g,%g", &b.West, &b.North, &b.East, &b.South); err != nil {
		return geo.Boundary{}, fmt.Errorf("%w: boundary %q: %w", tile.ErrInvalidArgument, s, err)
	}
	return b, b.Validate()
}

func parseTileType(s string) (format.TileType, error) {
	for _, t := range []format.TileType{format.TileTypePng, format.TileTypeJpeg, format.TileTypeDem} {
		if t.String() == s || (s == "jpeg" && t == format.TileTypeJpeg) {
			return t, nil
		}
	}
	return format.TileTypeUnknown, fmt.Errorf("%w: tile type %q", tile.ErrInvalidArgument, s)
}

func (c *packCmd) run(ctx context.Context) error {
	kind, err := projection.ParseKind(c.projection)
	if err != nil {
		return err
	}
	proj, err := projection.New(kind)
	if err != nil {
		return err
	}
	boundary, err := parseBoundary(c.boundary)
	if err != nil {
		return err
	}
	tileType, err := parseTileType(c.tileType)
	if err != nil {
		return err
	}
	cov, err := coverage.New(proj, boundary, uint32(c.maxLevel))
	if err != nil {
		return err
	}

	template := replaceExt(c.template, tileType)
	src, err := openSource(c.inputFormat, c.inputPath, template)
	if err != nil {
		return err
	}
	defer closeIfCloser(src)

	w, err := plate.NewWriter(c.outputPath, plate.WithPyramid(kind, tileType, boundary), plate.WithLogger(logger()))
	if err != nil {
		return err
	}
	defer w.Close()

	bar := newCountBar("packing")
	stats, err := plate.Pack(ctx, &countingReader{src, bar}, cov, uint32(c.minLevel), uint32(c.maxLevel), w)
	bar.Finish()
	fmt.Println()
	if err != nil {
		return err
	}
	log.Printf("packed %d of %d tiles", stats.Copied, stats.Addressed)
	return nil
}

func (c *packCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" || c.outputPath == "" {
		log.Print(c.Usage())
		return subcommands.ExitUsageError
	}
	if err := c.run(ctx); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
