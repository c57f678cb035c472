package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/eak1mov/go-skytiles/index"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/google/subcommands"
)

type exportCmd struct {
	inputFormat     string
	inputPath       string
	inputTemplate   string
	outputIndexPath string
	outputTilesPath string
}

func (c *exportCmd) Name() string     { return "export_index" }
func (c *exportCmd) Synopsis() string { return "export tile index and data from tileset" }
func (c *exportCmd) Usage() string {
	return "skytiles export_index -i <path> -o <path> [-t <path> -if <format>]\n"
}
func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input file path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (plate, mbtiles, bolt, folder)")
	f.StringVar(&c.inputTemplate, "it", defaultTemplate, "Path template of a folder input")
	f.StringVar(&c.outputIndexPath, "o", "", "Output index file path")
	f.StringVar(&c.outputTilesPath, "t", "", "Output tiles file path, for inputs without a single data file")
}

func (c *exportCmd) exportTiles(reader tile.Visitor) error {
	if c.outputTilesPath == "" {
		return fmt.Errorf("%w: -t is required for this input format", tile.ErrInvalidArgument)
	}
	indexFile, err := os.Create(c.outputIndexPath)
	if err != nil {
		return tile.IOError(err)
	}
	defer indexFile.Close()
	indexWriter := bufio.NewWriter(indexFile)

	tilesFile, err := os.Create(c.outputTilesPath)
	if err != nil {
		return tile.IOError(err)
	}
	defer tilesFile.Close()
	tilesWriter := bufio.NewWriter(tilesFile)
	tilesOffset := uint64(0)

	bar := newCountBar("exporting")

	err = reader.VisitTiles(func(tileID tile.ID, tileData []byte) error {
		indexItem := index.Item{
			Level:  tileID.Level,
			X:      tileID.X,
			Y:      tileID.Y,
			Length: uint32(len(tileData)),
			Offset: tilesOffset,
		}

		if err := binary.Write(indexWriter, binary.LittleEndian, indexItem); err != nil {
			return tile.IOError(err)
		}

		if _, err := tilesWriter.Write(tileData); err != nil {
			return tile.IOError(err)
		}

		tilesOffset += uint64(len(tileData))

		bar.Add(1)

		return nil
	})

	bar.Finish()
	fmt.Println()

	if err != nil {
		return err
	}

	if err := tilesWriter.Flush(); err != nil {
		return tile.IOError(err)
	}
	return tile.IOError(indexWriter.Flush())
}

func (c *exportCmd) exportLocations(reader tile.LocationVisitor) error {
	file, err := os.Create(c.outputIndexPath)
	if err != nil {
		return tile.IOError(err)
	}
	defer file.Close()

	n, err := index.Export(reader, file)
	if err != nil {
		return err
	}
	log.Printf("exported %d locations", n)
	return tile.IOError(file.Close())
}

func (c *exportCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" || c.outputIndexPath == "" {
		log.Print(c.Usage())
		return subcommands.ExitUsageError
	}
	reader, err := openSource(c.inputFormat, c.inputPath, c.inputTemplate)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer closeIfCloser(reader)

	if visitor, ok := reader.(tile.LocationVisitor); ok {
		err = c.exportLocations(visitor)
	} else {
		err = c.exportTiles(reader)
	}

	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
