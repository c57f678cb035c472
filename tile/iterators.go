package tile

import (
	"errors"
	"iter"
	"sync"
)

var errVisitCancelled = errors.New("visit cancelled")

// IterTiles returns an iterator over all tiles in the tileset.
// It yields tile IDs and their data. Iteration may panic on unrecoverable errors.
func IterTiles(r Visitor) iter.Seq2[ID, []byte] {
	return func(yield func(ID, []byte) bool) {
		err := r.VisitTiles(func(tileID ID, tileData []byte) error {
			if !yield(tileID, tileData) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}

// SyncWriter serializes WriteTile calls to a single-writer tileset,
// so tiles produced by parallel workers reach it one at a time.
type SyncWriter struct {
	mu sync.Mutex
	w  Writer
}

func NewSyncWriter(w Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

func (s *SyncWriter) WriteTile(tileID ID, tileData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.WriteTile(tileID, tileData)
}

func (s *SyncWriter) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Finalize()
}
