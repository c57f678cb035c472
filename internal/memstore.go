// Package internal holds helpers shared by the tests of several packages.
package internal

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/eak1mov/go-skytiles/tile"
)

// MemStore is an in-memory tileset implementing tile.Reader, tile.Writer and tile.Visitor.
type MemStore struct {
	mu        sync.Mutex
	tiles     map[tile.ID][]byte
	finalized bool
}

func NewMemStore() *MemStore {
	return &MemStore{tiles: make(map[tile.ID][]byte)}
}

func (s *MemStore) WriteTile(tileID tile.ID, tileData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles[tileID] = slices.Clone(tileData)
	return nil
}

func (s *MemStore) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalized = true
	return nil
}

func (s *MemStore) Finalized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized
}

func (s *MemStore) ReadTile(tileID tile.ID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data, ok := s.tiles[tileID]; ok {
		return slices.Clone(data), nil
	}
	return make([]byte, 0), nil
}

// VisitTiles visits tiles ordered by level, then row, then column.
func (s *MemStore) VisitTiles(visitor func(tile.ID, []byte) error) error {
	s.mu.Lock()
	snapshot := maps.Clone(s.tiles)
	s.mu.Unlock()

	ids := slices.SortedFunc(maps.Keys(snapshot), func(a, b tile.ID) int {
		return cmp.Or(cmp.Compare(a.Level, b.Level), cmp.Compare(a.Y, b.Y), cmp.Compare(a.X, b.X))
	})
	for _, id := range ids {
		if err := visitor(id, snapshot[id]); err != nil {
			return err
		}
	}
	return nil
}

// Tiles returns a copy of the stored tiles.
func (s *MemStore) Tiles() map[tile.ID][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.tiles)
}

// SyntheticTiles returns every tile of levels 0..maxLevel whose (x+y) is
// divisible by stride, with a payload naming the tile. Every tenth payload
// repeats the previous one, to exercise de-duplication.
func SyntheticTiles(maxLevel uint32, stride uint32) map[tile.ID][]byte {
	tiles := make(map[tile.ID][]byte)
	counter := 0
	for level := range maxLevel + 1 {
		n := tile.GridSize(level)
		for y := range n {
			for x := range n {
				if (x+y)%stride != 0 {
					continue
				}
				id := tile.ID{Level: level, X: x, Y: y}
				if counter++; counter%10 == 0 {
					tiles[id] = []byte("duplicate")
				} else {
					tiles[id] = fmt.Appendf(nil, "tile-%v", id)
				}
			}
		}
	}
	return tiles
}
