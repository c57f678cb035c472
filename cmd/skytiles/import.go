package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"

	"github.com/eak1mov/go-skytiles/index"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type importCmd struct {
	inputIndexPath string
	inputTilesPath string
	outputFormat   string
	outputPath     string
	outputTemplate string
}

func (c *importCmd) Name() string     { return "import_index" }
func (c *importCmd) Synopsis() string { return "create tileset from exported tile index and data" }
func (c *importCmd) Usage() string {
	return "skytiles import_index -i <path> -t <path> -o <path> [-of <format>]\n"
}
func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputIndexPath, "i", "", "Input index file path")
	f.StringVar(&c.inputTilesPath, "t", "", "Input tiles file path (a plate file works too)")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (plate, mbtiles, bolt, folder)")
	f.StringVar(&c.outputTemplate, "ot", defaultTemplate, "Path template of a folder output")
}

func (c *importCmd) run() error {
	indexData, err := os.ReadFile(c.inputIndexPath)
	if err != nil {
		return tile.IOError(err)
	}

	indexItems, err := index.ReadAll(indexData)
	if err != nil {
		return err
	}

	tilesFile, err := os.Open(c.inputTilesPath)
	if err != nil {
		return tile.IOError(err)
	}
	defer tilesFile.Close()

	writer, err := openSink(c.outputFormat, c.outputPath, c.outputTemplate, nil, nil)
	if err != nil {
		return err
	}
	defer closeIfCloser(writer)

	if len(indexItems) == 0 {
		return writer.Finalize()
	}

	maxLength := slices.MaxFunc(indexItems, func(a, b index.Item) int {
		return cmp.Compare(a.Length, b.Length)
	}).Length
	buffer := make([]byte, maxLength)

	slices.SortFunc(indexItems, func(a, b index.Item) int {
		return cmp.Compare(a.Offset, b.Offset)
	})

	bar := progressbar.New(len(indexItems))

	for _, item := range indexItems {
		tileData := buffer[:item.Length]
		if _, err := tilesFile.ReadAt(tileData, int64(item.Offset)); err != nil {
			return fmt.Errorf("%w: tile %v: %w", tile.ErrDataFormat, item.TileID(), err)
		}
		if err := writer.WriteTile(item.TileID(), tileData); err != nil {
			return err
		}
		bar.Add(1)
	}

	bar.Finish()
	fmt.Println()

	return writer.Finalize()
}

func (c *importCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputIndexPath == "" || c.inputTilesPath == "" || c.outputPath == "" {
		log.Print(c.Usage())
		return subcommands.ExitUsageError
	}
	if err := c.run(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
