// Package boltstore keeps tiles in a single bbolt file. It serves as a
// scratch sink for the pyramid generator and as a source for packing.
package boltstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/eak1mov/go-skytiles/tile"
	bolt "go.etcd.io/bbolt"
)

const keyLength = 12

var defaultBucket = []byte("tiles")

type options struct {
	bucket  []byte
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*options)

// WithBucket stores tiles under a named bucket, so one file can hold
// several pyramids, for example imagery and elevation.
func WithBucket(name string) Option {
	return func(o *options) {
		o.bucket = []byte(name)
	}
}

// WithTimeout bounds the wait for the file lock held by another process.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Store implements tile.Reader, tile.Writer and tile.Visitor. WriteTile is
// safe for concurrent use: writes from parallel workers are batched into
// shared transactions.
type Store struct {
	options
	db *bolt.DB
}

// Open opens or creates the store at filePath.
func Open(filePath string, opts ...Option) (*Store, error) {
	o := options{
		bucket:  defaultBucket,
		timeout: 2 * time.Second,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.bucket) == 0 {
		return nil, fmt.Errorf("%w: empty bucket name", tile.ErrInvalidArgument)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, tile.IOError(err)
	}
	db, err := bolt.Open(filePath, 0o600, &bolt.Options{Timeout: o.timeout})
	if err != nil {
		return nil, openError(err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(o.bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, tile.IOError(err)
	}
	o.logger.Debug("skytiles: bolt store opened", "path", filePath, "bucket", string(o.bucket))
	return &Store{options: o, db: db}, nil
}

func openError(err error) error {
	if errors.Is(err, bolt.ErrInvalid) || errors.Is(err, bolt.ErrChecksum) || errors.Is(err, bolt.ErrVersionMismatch) {
		return fmt.Errorf("%w: %w", tile.ErrDataFormat, err)
	}
	return tile.IOError(err)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// key orders tiles by level, then row, then column.
func key(tileID tile.ID) []byte {
	var buf [keyLength]byte
	binary.BigEndian.PutUint32(buf[0:], tileID.Level)
	binary.BigEndian.PutUint32(buf[4:], tileID.Y)
	binary.BigEndian.PutUint32(buf[8:], tileID.X)
	return buf[:]
}

func parseKey(k []byte) (tile.ID, error) {
	if len(k) != keyLength {
		return tile.ID{}, fmt.Errorf("%w: bolt key of %d bytes", tile.ErrDataFormat, len(k))
	}
	tileID := tile.ID{
		Level: binary.BigEndian.Uint32(k[0:]),
		Y:     binary.BigEndian.Uint32(k[4:]),
		X:     binary.BigEndian.Uint32(k[8:]),
	}
	if !tileID.Valid() {
		return tile.ID{}, fmt.Errorf("%w: bolt key %x", tile.ErrDataFormat, k)
	}
	return tileID, nil
}

// WriteTile stores the tile, replacing a previous payload. Empty payloads
// delete the tile.
func (s *Store) WriteTile(tileID tile.ID, tileData []byte) error {
	if !tileID.Valid() {
		return fmt.Errorf("%w: invalid tile %v", tile.ErrInvalidArgument, tileID)
	}
	err := s.db.Batch(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if len(tileData) == 0 {
			return b.Delete(key(tileID))
		}
		return b.Put(key(tileID), tileData)
	})
	return tile.IOError(err)
}

// Finalize flushes the file to disk. The store stays open for reading.
func (s *Store) Finalize() error {
	return tile.IOError(s.db.Sync())
}

func (s *Store) ReadTile(tileID tile.ID) ([]byte, error) {
	if !tileID.Valid() {
		return nil, fmt.Errorf("%w: invalid tile %v", tile.ErrInvalidArgument, tileID)
	}
	tileData := make([]byte, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		// bolt memory is only valid inside the transaction
		if v := tx.Bucket(s.bucket).Get(key(tileID)); v != nil {
			tileData = slices.Clone(v)
		}
		return nil
	})
	if err != nil {
		return nil, tile.IOError(err)
	}
	return tileData, nil
}

// VisitTiles visits tiles ordered by level, then row, then column, inside a
// single read transaction. The visitor must not write to the store.
func (s *Store) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, v []byte) error {
			tileID, err := parseKey(k)
			if err != nil {
				return err
			}
			return visitor(tileID, slices.Clone(v))
		})
	})
}

// Reset removes every tile of the bucket, for example the leftovers of an
// earlier run sharing the file.
func (s *Store) Reset() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
	if err != nil {
		return tile.IOError(err)
	}
	s.logger.Debug("skytiles: bolt store reset", "bucket", string(s.bucket))
	return nil
}

// Count returns the number of stored tiles.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return n, tile.IOError(err)
}
