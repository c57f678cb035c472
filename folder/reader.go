package folder

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-skytiles/tile"
)

// Reader implements tile.Reader and tile.Visitor for a folder of tile files.
type Reader struct {
	rootDir string
	pattern Pattern
}

// NewReader creates a Reader for tiles stored under rootDir by the template.
func NewReader(rootDir, template string) (*Reader, error) {
	pattern, err := ParsePattern(template)
	if err != nil {
		return nil, err
	}
	return &Reader{rootDir: rootDir, pattern: pattern}, nil
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	tileData, err := os.ReadFile(r.pattern.FilePath(r.rootDir, tileID))
	if tile.IsNotExist(err) {
		return make([]byte, 0), nil
	}
	if err != nil {
		return nil, tile.IOError(err)
	}
	return tileData, nil
}

// VisitTiles walks the root directory in lexical order and visits every file
// matching the template. Other files are ignored.
func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	err := filepath.WalkDir(r.rootDir, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return tile.IOError(err)
		}
		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(r.rootDir, filePath)
		if err != nil {
			return nil
		}
		tileID, ok := r.pattern.parse(filepath.ToSlash(relPath))
		if !ok {
			return nil
		}

		tileData, err := os.ReadFile(filePath)
		if err != nil {
			return tile.IOError(err)
		}
		return visitor(tileID, tileData)
	})
	if tile.IsNotExist(err) {
		return nil
	}
	return err
}
