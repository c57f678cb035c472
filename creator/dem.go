package creator

import (
	"context"
	"fmt"
	"math"

	"github.com/eak1mov/go-skytiles/grid"
	"github.com/eak1mov/go-skytiles/projection"
	"github.com/eak1mov/go-skytiles/serializer"
	"github.com/eak1mov/go-skytiles/tile"
)

// DemCreator renders elevation tiles from a ValueMap. Base tiles are always
// written; samples without data are stored as 0.
type DemCreator struct {
	proj       projection.Projection
	values     grid.ValueMap
	serializer *serializer.DemSerializer
	coords     []float64
	options
}

func NewDemCreator(proj projection.Projection, values grid.ValueMap, s *serializer.DemSerializer, opts ...Option) (*DemCreator, error) {
	if proj == nil || values == nil || s == nil {
		return nil, fmt.Errorf("%w: dem creator needs a projection, a value map and a serializer", tile.ErrInvalidArgument)
	}
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	return &DemCreator{
		proj:       proj,
		values:     values,
		serializer: s,
		coords:     projection.GridPoints(serializer.DemSize),
		options:    o,
	}, nil
}

func (c *DemCreator) Create(ctx context.Context, tileID tile.ID) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	points := projection.PointGrid(c.proj, tileID, c.coords)
	samples := make([]int16, len(points))
	for i, p := range points {
		samples[i] = toSample(c.values.ValueAt(p.X, p.Y))
	}
	if err := c.serializer.Serialize(tileID, samples); err != nil {
		return false, fmt.Errorf("create %v: %w", tileID, err)
	}
	return true, nil
}

// Aggregate takes every other sample of the children. The lattice of a
// parent sample falls on a child sample, so no resampling is needed. Parts
// covered by a missing child are sampled from the source.
func (c *DemCreator) Aggregate(ctx context.Context, tileID tile.ID) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	var children [4][]int16
	found := false
	for q, child := range tileID.Children() {
		samples, err := c.serializer.Deserialize(child)
		if err != nil {
			return false, fmt.Errorf("aggregate %v: %w", tileID, err)
		}
		children[q] = samples
		found = found || samples != nil
	}
	if !found {
		return false, nil
	}

	const n = serializer.DemSize - 1
	samples := make([]int16, serializer.DemSamples)
	for row := range serializer.DemSize {
		cy := min(2*row/n, 1)
		ly := 2*row - cy*n
		for col := range serializer.DemSize {
			cx := min(2*col/n, 1)
			lx := 2*col - cx*n
			if child := children[cx+2*cy]; child != nil {
				samples[row*serializer.DemSize+col] = child[ly*serializer.DemSize+lx]
				continue
			}
			p := c.proj.TileToPoint(tileID, c.coords[col], c.coords[row])
			samples[row*serializer.DemSize+col] = toSample(c.values.ValueAt(p.X, p.Y))
		}
	}
	if err := c.serializer.Serialize(tileID, samples); err != nil {
		return false, fmt.Errorf("aggregate %v: %w", tileID, err)
	}
	return true, nil
}

func toSample(v float64) int16 {
	if math.IsNaN(v) {
		return 0
	}
	return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, math.Round(v))))
}
