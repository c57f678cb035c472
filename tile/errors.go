package tile

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrInvalidArgument reports missing or malformed construction parameters.
	ErrInvalidArgument = errors.New("skytiles: invalid argument")

	// ErrDataFormat reports a payload or container that does not match its format.
	ErrDataFormat = errors.New("skytiles: invalid data format")

	// ErrIO wraps failures of the underlying storage.
	ErrIO = errors.New("skytiles: i/o failure")

	// ErrOutOfMemory reports a source raster or level count too large to process.
	ErrOutOfMemory = errors.New("skytiles: out of memory")

	// ErrCancelled reports a run stopped on request. It is a terminal state, not a failure.
	ErrCancelled = errors.New("skytiles: cancelled")
)

// IOError wraps err with ErrIO unless it is nil or already classified.
func IOError(err error) error {
	if err == nil || errors.Is(err, ErrIO) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}

// IsNotExist reports whether err means the requested tile has no data.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
