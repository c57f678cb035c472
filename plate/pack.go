package plate

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/eak1mov/go-skytiles/coverage"
	"github.com/eak1mov/go-skytiles/tile"
	"golang.org/x/sync/errgroup"
)

// PackStats counts what Pack looked at and what it copied.
type PackStats struct {
	Addressed uint64
	Copied    uint64
}

type packOptions struct {
	workers int
}

type PackOption func(*packOptions)

// WithPackWorkers sets how many tiles are read from the source at once
// (default runtime.NumCPU()).
func WithPackWorkers(n int) PackOption {
	return func(o *packOptions) {
		o.workers = n
	}
}

// Pack copies the tiles of cov between minLevel and maxLevel from src to w,
// then finalizes w. Addresses for which src has no data are skipped. src
// must be safe for concurrent reads; w receives one tile at a time.
func Pack(ctx context.Context, src tile.Reader, cov *coverage.Coverage, minLevel, maxLevel uint32, w tile.Writer, opts ...PackOption) (PackStats, error) {
	if src == nil || cov == nil || w == nil {
		return PackStats{}, fmt.Errorf("%w: nil source, coverage or writer", tile.ErrInvalidArgument)
	}
	if minLevel > maxLevel || maxLevel > cov.MaxLevel() {
		return PackStats{}, fmt.Errorf("%w: levels %d..%d outside coverage 0..%d", tile.ErrInvalidArgument, minLevel, maxLevel, cov.MaxLevel())
	}
	o := packOptions{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&o)
	}

	sink := tile.NewSyncWriter(w)
	var addressed, copied atomic.Uint64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, o.workers))

levels:
	for level := minLevel; level <= maxLevel; level++ {
		for tileID := range cov.Tiles(level) {
			if gctx.Err() != nil {
				break levels
			}
			addressed.Add(1)
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return fmt.Errorf("%w: %w", tile.ErrCancelled, err)
				}
				tileData, err := src.ReadTile(tileID)
				if err != nil {
					return fmt.Errorf("read %v: %w", tileID, err)
				}
				if len(tileData) == 0 {
					return nil
				}
				if err := sink.WriteTile(tileID, tileData); err != nil {
					return fmt.Errorf("write %v: %w", tileID, err)
				}
				copied.Add(1)
				return nil
			})
		}
	}

	err := g.Wait()
	stats := PackStats{Addressed: addressed.Load(), Copied: copied.Load()}
	if err != nil {
		return stats, err
	}
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("%w: %w", tile.ErrCancelled, err)
	}
	return stats, sink.Finalize()
}
