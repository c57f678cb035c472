package folder

import (
	"os"
	"path/filepath"

	"github.com/eak1mov/go-skytiles/tile"
)

// Writer implements tile.Writer for a folder of tile files.
// Concurrent calls are safe as long as they write distinct tiles.
type Writer struct {
	rootDir string
	pattern Pattern
}

// NewWriter creates a Writer storing tiles under rootDir by the template.
func NewWriter(rootDir, template string) (*Writer, error) {
	pattern, err := ParsePattern(template)
	if err != nil {
		return nil, err
	}
	return &Writer{rootDir: rootDir, pattern: pattern}, nil
}

// WriteTile writes the tile through a temporary file, so readers never see a partial tile.
func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	filePath := w.pattern.FilePath(w.rootDir, tileID)
	dirPath := filepath.Dir(filePath)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return tile.IOError(err)
	}

	f, err := os.CreateTemp(dirPath, ".tile-*")
	if err != nil {
		return tile.IOError(err)
	}
	if _, err := f.Write(tileData); err != nil {
		f.Close()
		os.Remove(f.Name())
		return tile.IOError(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return tile.IOError(err)
	}
	if err := os.Chmod(f.Name(), 0644); err != nil {
		os.Remove(f.Name())
		return tile.IOError(err)
	}
	if err := os.Rename(f.Name(), filePath); err != nil {
		os.Remove(f.Name())
		return tile.IOError(err)
	}
	return nil
}

func (w *Writer) Finalize() error {
	return nil
}
