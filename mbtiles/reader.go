// Package mbtiles exports pyramids to MBTiles, the sqlite tile container
// understood by web map clients, and reads them back.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package mbtiles

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/eak1mov/go-skytiles/tile"
)

// Reader implements tile.Reader and tile.Visitor for MBTiles files.
type Reader struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// NewReader opens filePath read-only.
//
// The returned Reader must be closed after use to release database resources.
func NewReader(filePath string) (*Reader, error) {
	// sqlite creates missing files even in read-only mode on some builds
	if _, err := os.Stat(filePath); err != nil {
		return nil, tile.IOError(err)
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", filePath))
	if err != nil {
		return nil, tile.IOError(err)
	}

	stmt, err := db.Prepare("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", tile.ErrDataFormat, err)
	}

	return &Reader{db: db, stmt: stmt}, nil
}

func (r *Reader) Close() error {
	return errors.Join(r.stmt.Close(), r.db.Close())
}

func (r *Reader) ReadMetadata() (map[string]string, error) {
	metadata := make(map[string]string)

	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, tile.IOError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("%w: %w", tile.ErrDataFormat, err)
		}
		metadata[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, tile.IOError(err)
	}

	return metadata, nil
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	if !tileID.Valid() {
		return nil, fmt.Errorf("%w: invalid tile %v", tile.ErrInvalidArgument, tileID)
	}
	x, y, z := tileID.X, tileID.Y, tileID.Level
	y = (1 << z) - 1 - y // XYZ -> TMS

	var tileData []byte
	if err := r.stmt.QueryRow(z, x, y).Scan(&tileData); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return make([]byte, 0), nil
		}
		return nil, tile.IOError(err)
	}

	return tileData, nil
}

func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	rows, err := r.db.Query("SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles")
	if err != nil {
		return tile.IOError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var x, y, z uint32
		var tileData []byte

		if err := rows.Scan(&z, &x, &y, &tileData); err != nil {
			return fmt.Errorf("%w: %w", tile.ErrDataFormat, err)
		}
		if z > tile.MaxLevel || y >= 1<<z {
			return fmt.Errorf("%w: tile row %d at zoom %d", tile.ErrDataFormat, y, z)
		}

		y = (1 << z) - 1 - y // TMS -> XYZ

		if err := visitor(tile.ID{Level: z, X: x, Y: y}, tileData); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return tile.IOError(err)
	}

	return nil
}
