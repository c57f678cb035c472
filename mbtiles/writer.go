package mbtiles

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/tile"
)

// Writer implements tile.Writer for MBTiles files. It is not safe for
// concurrent use, wrap it in tile.SyncWriter for the pyramid generator.
type Writer struct {
	db     *sql.DB
	stmt   *sql.Stmt
	logger *slog.Logger
}

type writerConfig struct {
	Metadata map[string]string
	Logger   *slog.Logger
}

type WriterOption func(*writerConfig)

func WithMetadata(metadata map[string]string) WriterOption {
	return func(c *writerConfig) { c.Metadata = metadata }
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// Metadata returns the standard metadata rows for a raster tileset.
func Metadata(name, tileFormat string, boundary geo.Boundary, minLevel, maxLevel uint32) map[string]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return map[string]string{
		"name":    name,
		"format":  tileFormat,
		"type":    "baselayer",
		"bounds":  f(boundary.West) + "," + f(boundary.South) + "," + f(boundary.East) + "," + f(boundary.North),
		"minzoom": strconv.FormatUint(uint64(minLevel), 10),
		"maxzoom": strconv.FormatUint(uint64(maxLevel), 10),
	}
}

// NewWriter creates the MBTiles file and its tables. The file must not exist.
func NewWriter(filePath string, opts ...WriterOption) (*Writer, error) {
	config := writerConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	var err error
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, tile.IOError(err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	_, err = db.Exec(`
		CREATE TABLE metadata (name TEXT, value TEXT);
		CREATE TABLE tiles (
			zoom_level INTEGER,
			tile_column INTEGER,
			tile_row INTEGER,
			tile_data BLOB
		);
	`)
	if err != nil {
		return nil, tile.IOError(err)
	}

	for k, v := range config.Metadata {
		_, err = db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v)
		if err != nil {
			return nil, tile.IOError(err)
		}
	}

	stmt, err := db.Prepare("INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, tile.IOError(err)
	}

	return &Writer{db, stmt, config.Logger}, nil
}

func (w *Writer) Close() error {
	return errors.Join(w.stmt.Close(), w.db.Close())
}

// WriteTile stores the tile with a TMS row number. Empty payloads are skipped.
func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if !tileID.Valid() {
		return fmt.Errorf("%w: invalid tile %v", tile.ErrInvalidArgument, tileID)
	}
	if len(tileData) == 0 {
		return nil
	}
	x, y, z := tileID.X, tileID.Y, tileID.Level
	y = (1 << z) - 1 - y // XYZ -> TMS

	if _, err := w.stmt.Exec(z, x, y, tileData); err != nil {
		return tile.IOError(err)
	}
	return nil
}

func (w *Writer) Finalize() error {
	w.logger.Debug("skytiles: creating mbtiles index")
	if _, err := w.db.Exec("CREATE UNIQUE INDEX tile_index ON tiles (zoom_level, tile_column, tile_row)"); err != nil {
		return fmt.Errorf("%w: duplicate tiles: %w", tile.ErrInvalidArgument, err)
	}
	w.logger.Debug("skytiles: mbtiles done")
	return nil
}
