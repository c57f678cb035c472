// Package creator renders single tiles, either by sampling a source map at
// the base level or by combining the four children at coarser levels.
package creator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-skytiles/tile"
	"golang.org/x/sync/errgroup"
)

// DefaultTileSize is the edge of image tiles in pixels.
const DefaultTileSize = 256

// Creator produces and stores one tile. Both methods report whether a tile
// was written: tiles without data are skipped so parents can tell.
type Creator interface {
	// Create samples the source for a tile of the base level.
	Create(ctx context.Context, tileID tile.ID) (bool, error)

	// Aggregate builds a tile from its four children. It writes the tile
	// if and only if at least one child exists.
	Aggregate(ctx context.Context, tileID tile.ID) (bool, error)
}

type options struct {
	tileSize int
	logger   *slog.Logger
}

type Option func(*options)

// WithTileSize sets the edge of image tiles. It has no effect on DEM tiles.
func WithTileSize(size int) Option {
	return func(o *options) {
		o.tileSize = size
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) (options, error) {
	o := options{tileSize: DefaultTileSize, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tileSize <= 0 {
		return o, fmt.Errorf("%w: tile size %d", tile.ErrInvalidArgument, o.tileSize)
	}
	return o, nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", tile.ErrCancelled, err)
	}
	return nil
}

// MultiCreator drives several creators for the same tile, for example an
// image and a DEM pyramid built in one pass. A failure of one cancels the others.
type MultiCreator struct {
	creators []Creator
}

func NewMultiCreator(creators ...Creator) (*MultiCreator, error) {
	if len(creators) == 0 {
		return nil, fmt.Errorf("%w: no creators", tile.ErrInvalidArgument)
	}
	for i, c := range creators {
		if c == nil {
			return nil, fmt.Errorf("%w: creator %d is nil", tile.ErrInvalidArgument, i)
		}
	}
	return &MultiCreator{creators: creators}, nil
}

func (m *MultiCreator) Create(ctx context.Context, tileID tile.ID) (bool, error) {
	return m.each(ctx, func(ctx context.Context, c Creator) (bool, error) {
		return c.Create(ctx, tileID)
	})
}

func (m *MultiCreator) Aggregate(ctx context.Context, tileID tile.ID) (bool, error) {
	return m.each(ctx, func(ctx context.Context, c Creator) (bool, error) {
		return c.Aggregate(ctx, tileID)
	})
}

func (m *MultiCreator) each(ctx context.Context, fn func(context.Context, Creator) (bool, error)) (bool, error) {
	written := make([]bool, len(m.creators))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range m.creators {
		g.Go(func() error {
			ok, err := fn(gctx, c)
			written[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	for _, ok := range written {
		if ok {
			return true, nil
		}
	}
	return false, nil
}
