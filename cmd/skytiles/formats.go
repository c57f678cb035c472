package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/eak1mov/go-skytiles/boltstore"
	"github.com/eak1mov/go-skytiles/folder"
	"github.com/eak1mov/go-skytiles/mbtiles"
	"github.com/eak1mov/go-skytiles/plate"
	"github.com/eak1mov/go-skytiles/plate/format"
	"github.com/eak1mov/go-skytiles/serializer"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/schollz/progressbar/v3"
)

func deduceFormat(name, filePath string) string {
	if name != "" {
		return name
	}
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mbtiles":
		return "mbtiles"
	case ".plate":
		return "plate"
	case ".bolt", ".db":
		return "bolt"
	}
	return "folder"
}

// tileSource is the union of what the subcommands need from an input.
type tileSource interface {
	tile.Reader
	tile.Visitor
}

func openSource(name, path, template string) (tileSource, error) {
	switch deduceFormat(name, path) {
	case "mbtiles":
		return mbtiles.NewReader(path)
	case "plate":
		return plate.NewFileReader(path, plate.WithLeafCache(64), plate.WithReaderLogger(logger()))
	case "bolt":
		return boltstore.Open(path, boltstore.WithLogger(logger()))
	case "folder":
		return folder.NewReader(path, template)
	}
	return nil, fmt.Errorf("%w: input format %q", tile.ErrInvalidArgument, name)
}

func openSink(name, path, template string, plateOpts []plate.WriterOption, mbOpts []mbtiles.WriterOption) (tile.Writer, error) {
	switch deduceFormat(name, path) {
	case "mbtiles":
		return mbtiles.NewWriter(path, append(mbOpts, mbtiles.WithLogger(logger()))...)
	case "plate":
		return plate.NewWriter(path, append(plateOpts, plate.WithLogger(logger()))...)
	case "bolt":
		return boltstore.Open(path, boltstore.WithLogger(logger()))
	case "folder":
		return folder.NewWriter(path, template)
	}
	return nil, fmt.Errorf("%w: output format %q", tile.ErrInvalidArgument, name)
}

func closeIfCloser(v any) {
	if closer, ok := v.(io.Closer); ok {
		closer.Close()
	}
}

// defaultTemplate is the layout written by generate for png pyramids.
var defaultTemplate = replaceExt(serializer.DefaultImageTemplate, format.TileTypePng)

func replaceExt(template string, tileType format.TileType) string {
	return strings.ReplaceAll(template, "{ext}", tileType.String())
}

// countingReader advances a progress bar on every read.
type countingReader struct {
	tile.Reader
	bar *progressbar.ProgressBar
}

func (r *countingReader) ReadTile(tileID tile.ID) ([]byte, error) {
	r.bar.Add(1)
	return r.Reader.ReadTile(tileID)
}
