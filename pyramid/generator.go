// Package pyramid builds a tile pyramid: the base level is sampled from the
// source, every coarser level is aggregated from the level below.
package pyramid

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/eak1mov/go-skytiles/coverage"
	"github.com/eak1mov/go-skytiles/creator"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type options struct {
	workers  int
	logger   *slog.Logger
	progress []ProgressFunc
}

type Option func(*options)

// WithWorkers limits the number of tiles processed at the same time (default runtime.NumCPU()).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithProgress registers a listener for the step transitions of every run.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = append(o.progress, fn)
	}
}

// Generator drives a Creator over the tiles of a Coverage.
type Generator struct {
	creator  creator.Creator
	coverage *coverage.Coverage
	options
}

func NewGenerator(c creator.Creator, cov *coverage.Coverage, opts ...Option) (*Generator, error) {
	if c == nil || cov == nil {
		return nil, fmt.Errorf("%w: generator needs a creator and a coverage", tile.ErrInvalidArgument)
	}
	g := &Generator{
		creator:  c,
		coverage: cov,
		options:  options{workers: runtime.NumCPU(), logger: slog.New(slog.DiscardHandler)},
	}
	for _, opt := range opts {
		opt(&g.options)
	}
	if g.workers <= 0 {
		return nil, fmt.Errorf("%w: %d workers", tile.ErrInvalidArgument, g.workers)
	}
	return g, nil
}

// Generate builds levels maxLevel..0 and waits for the result. A cancelled
// run returns an error matching tile.ErrCancelled together with its counters.
func (g *Generator) Generate(ctx context.Context, maxLevel uint32) (Result, error) {
	h, err := g.Start(ctx, maxLevel)
	if err != nil {
		return Result{}, err
	}
	result := h.Wait()
	return result, result.Err
}

// Start launches a run in the background.
func (g *Generator) Start(ctx context.Context, maxLevel uint32) (*Handle, error) {
	if maxLevel > g.coverage.MaxLevel() {
		return nil, fmt.Errorf("%w: level %d is beyond the coverage (max %d)", tile.ErrInvalidArgument, maxLevel, g.coverage.MaxLevel())
	}
	ctx, cancel := context.WithCancel(ctx)
	h := newHandle(uuid.New(), maxLevel, cancel)
	for _, fn := range g.progress {
		h.OnProgress(fn)
	}
	go func() {
		defer cancel()
		h.finish(g.run(ctx, h))
	}()
	return h, nil
}

func (g *Generator) run(ctx context.Context, h *Handle) error {
	logger := g.logger.With("run", h.ID().String())
	start := time.Now()
	logger.Info("skytiles: pyramid started", "max_level", h.maxLevel, "boundary", g.coverage.Boundary().String())

	h.Step(StepBuildPyramid, StatusStarted)

	h.setState(StateBuildingBaseLevel, h.maxLevel)
	written, err := g.runLevel(ctx, h, g.coverage.Tiles(h.maxLevel), g.creator.Create)
	if err != nil {
		return g.stopped(logger, err)
	}
	logger.Debug("skytiles: base level done", "level", h.maxLevel, "written", len(written))

	for level := int(h.maxLevel) - 1; level >= 0; level-- {
		h.setState(StateAggregatingLevel, uint32(level))
		written, err = g.runLevel(ctx, h, slices.Values(parents(written)), g.creator.Aggregate)
		if err != nil {
			return g.stopped(logger, err)
		}
		logger.Debug("skytiles: level aggregated", "level", level, "written", len(written))
	}

	h.Step(StepBuildPyramid, StatusCompleted)
	logger.Info("skytiles: pyramid completed",
		"processed", h.TilesProcessed(), "written", h.TilesWritten(), "elapsed", time.Since(start))
	return nil
}

func (g *Generator) stopped(logger *slog.Logger, err error) error {
	if errors.Is(err, tile.ErrCancelled) {
		logger.Info("skytiles: pyramid cancelled")
	} else {
		logger.Error("skytiles: pyramid failed", "error", err)
	}
	return err
}

// runLevel processes the tiles of one level on the worker pool and returns
// the written ones. It returns only after every started tile has finished.
func (g *Generator) runLevel(ctx context.Context, h *Handle, tiles iter.Seq[tile.ID], fn func(context.Context, tile.ID) (bool, error)) ([]tile.ID, error) {
	var (
		mu      sync.Mutex
		written []tile.ID
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for tileID := range tiles {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			ok, err := fn(egCtx, tileID)
			h.processed.Add(1)
			if err != nil {
				return err
			}
			if ok {
				h.written.Add(1)
				mu.Lock()
				written = append(written, tileID)
				mu.Unlock()
			}
			return nil
		})
	}
	err := eg.Wait()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", tile.ErrCancelled, context.Cause(ctx))
	}
	if err != nil {
		return nil, err
	}
	return written, nil
}

// parents returns the distinct parents of the tiles, sorted row by row.
func parents(tiles []tile.ID) []tile.ID {
	result := make([]tile.ID, 0, len(tiles)/2+1)
	for _, id := range tiles {
		result = append(result, id.Parent())
	}
	slices.SortFunc(result, func(a, b tile.ID) int {
		return cmp.Or(cmp.Compare(a.Y, b.Y), cmp.Compare(a.X, b.X))
	})
	return slices.Compact(result)
}
