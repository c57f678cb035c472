package coverage_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/eak1mov/go-skytiles/coverage"
	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/projection"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestRectangles(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name     string
		boundary geo.Boundary
		level    uint32
		want     []tile.ID
	}{
		{
			name:     "World",
			boundary: geo.World(),
			level:    1,
			want:     []tile.ID{{Level: 1, X: 0, Y: 0}, {Level: 1, X: 1, Y: 0}, {Level: 1, X: 0, Y: 1}, {Level: 1, X: 1, Y: 1}},
		},
		{
			name:     "Quadrant",
			boundary: geo.Boundary{West: 0, North: 90, East: 90, South: 0},
			level:    2,
			want: []tile.ID{
				{Level: 2, X: 2, Y: 0}, {Level: 2, X: 3, Y: 0},
				{Level: 2, X: 2, Y: 1}, {Level: 2, X: 3, Y: 1},
				{Level: 2, X: 2, Y: 2}, {Level: 2, X: 3, Y: 2},
			},
		},
		{
			name:     "Antimeridian",
			boundary: geo.Boundary{West: 170, North: 10, East: -170, South: -10},
			level:    2,
			want: []tile.ID{
				{Level: 2, X: 0, Y: 1}, {Level: 2, X: 3, Y: 1},
				{Level: 2, X: 0, Y: 2}, {Level: 2, X: 3, Y: 2},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cov, err := coverage.New(projection.Equirectangular{}, tc.boundary, tc.level)
			require.NoError(t, err)

			got := slices.Collect(cov.Tiles(tc.level))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Tiles(%v) mismatch (-want+got):\n%v", tc.level, diff)
			}
			require.Equal(t, uint64(len(tc.want)), cov.Count(tc.level))
			for _, id := range tc.want {
				require.True(t, cov.Contains(id), "Contains(%v)", id)
				require.True(t, cov.Contains(id.Parent()), "Contains(%v)", id.Parent())
			}
			require.Equal(t, uint64(1), cov.Count(0))
			require.Zero(t, cov.Count(tc.level+1))
		})
	}
}

func TestRectanglesExclude(t *testing.T) {
	cov, err := coverage.New(projection.Mercator{}, geo.Boundary{West: 0, North: 60, East: 90, South: 1}, 3)
	require.NoError(t, err)
	require.False(t, cov.Contains(tile.ID{Level: 3, X: 0, Y: 0}))
	require.False(t, cov.Contains(tile.ID{Level: 3, X: 4, Y: 7}))
	require.True(t, cov.Contains(tile.ID{Level: 3, X: 4, Y: 3}))
	require.False(t, cov.Contains(tile.ID{Level: 4, X: 8, Y: 7}))
}

func TestToastWorld(t *testing.T) {
	t.Parallel()

	cov, err := coverage.New(projection.NewToast(), geo.World(), 3)
	require.NoError(t, err)
	for level := range uint32(4) {
		n := uint64(tile.GridSize(level))
		require.Equal(t, n*n, cov.Count(level))

		faces, err := coverage.ToastFaces(geo.World(), level)
		require.NoError(t, err)
		require.Equal(t, projection.FaceCount(level), uint64(len(faces)))
	}
}

func TestToastPartial(t *testing.T) {
	t.Parallel()

	p := projection.NewToast()
	for _, b := range []geo.Boundary{
		{West: 10, North: 20, East: 20, South: 10},
		{West: 170, North: 5, East: -170, South: -5},
		{West: -30, North: 90, East: 30, South: 80},
	} {
		cov, err := coverage.New(p, b, 5)
		require.NoError(t, err)

		center := geo.Point{X: b.West + b.Width()/2, Y: (b.North + b.South) / 2}
		for level := range uint32(6) {
			want := p.PointToTile(level, center)
			require.True(t, cov.Contains(want), "%v: level %v misses %v", b, level, want)

			var prev tile.ID
			first := true
			for id := range cov.Tiles(level) {
				require.True(t, cov.Contains(id))
				if level > 0 {
					require.True(t, cov.Contains(id.Parent()), "%v: orphan tile %v", b, id)
				}
				if !first {
					require.True(t, prev.Y < id.Y || prev.Y == id.Y && prev.X < id.X, "%v: %v after %v", b, id, prev)
				}
				prev, first = id, false
			}
		}
		n := uint64(tile.GridSize(5))
		require.Less(t, cov.Count(5), n*n, "%v", b)

		faces, err := coverage.ToastFaces(b, 3)
		require.NoError(t, err)
		require.NotEmpty(t, faces)
		for _, f := range faces {
			require.True(t, cov.Contains(f.Tile), "%v: face %v outside coverage", b, f)
		}
	}
}

// faceBounds returns the bounds of every face of the level, per tile.
func faceBounds(p projection.Toast, level uint32) map[tile.ID][]geo.Boundary {
	result := make(map[tile.ID][]geo.Boundary)
	faces := p.RootFaces()
	for range level {
		next := make([]projection.FaceGeometry, 0, 4*len(faces))
		for _, g := range faces {
			children := p.ChildFaces(g)
			next = append(next, children[:]...)
		}
		faces = next
	}
	for _, g := range faces {
		result[g.Face.Tile] = append(result[g.Face.Tile], g.Bounds())
	}
	return result
}

func TestToastIntersection(t *testing.T) {
	t.Parallel()

	const maxLevel = 5
	p := projection.NewToast()
	lattice := []float64{0, 0.25, 0.5, 0.75, 1}
	bounds := make([]map[tile.ID][]geo.Boundary, maxLevel+1)
	for level := range uint32(maxLevel + 1) {
		bounds[level] = faceBounds(p, level)
	}

	for _, b := range []geo.Boundary{
		{West: 170, North: 5, East: -170, South: -5},
		{West: 150, North: 60, East: -120, South: 20},
		{West: -30, North: 90, East: 30, South: 80},
		{West: -180, North: 90, East: 180, South: 75},
		{West: 100, North: -70, East: -100, South: -90},
		{West: 10.2, North: 45.6, East: 10.7, South: 45.1},
		{West: -0.3, North: 0.2, East: 0.3, South: -0.2},
	} {
		cov, err := coverage.New(p, b, maxLevel)
		require.NoError(t, err)

		for level := range uint32(maxLevel + 1) {
			// every tile with a sample inside the boundary is kept
			n := tile.GridSize(level)
			for y := range n {
				for x := range n {
					id := tile.ID{Level: level, X: x, Y: y}
					for _, u := range lattice {
						for _, v := range lattice {
							pt := p.TileToPoint(id, u, v)
							if b.Contains(pt) {
								require.True(t, cov.Contains(id), "%v: %v has %v inside but is missing", b, id, pt)
							}
						}
					}
				}
			}

			// every point of the boundary lands in a kept tile
			for _, fy := range []float64{0.1, 0.5, 0.9} {
				for _, fx := range []float64{0.1, 0.5, 0.9} {
					pt := geo.Point{X: b.West + fx*b.Width(), Y: b.South + fy*(b.North-b.South)}
					if pt.X > 180 {
						pt.X -= 360
					}
					id := p.PointToTile(level, pt)
					require.True(t, cov.Contains(id), "%v: %v holds %v but is missing", b, id, pt)
				}
			}

			// every kept tile has a face whose footprint intersects the boundary
			for id := range cov.Tiles(level) {
				require.True(t, slices.ContainsFunc(bounds[level][id], b.Intersects), "%v: %v does not intersect", b, id)
			}
		}
	}
}

func TestErrors(t *testing.T) {
	_, err := coverage.New(projection.Equirectangular{}, geo.World(), coverage.MaxLevel+1)
	require.True(t, errors.Is(err, tile.ErrOutOfMemory), "err = %v", err)

	_, err = coverage.New(projection.Equirectangular{}, geo.Boundary{North: -1, South: 1}, 2)
	require.True(t, errors.Is(err, tile.ErrInvalidArgument), "err = %v", err)

	_, err = coverage.New(nil, geo.World(), 2)
	require.True(t, errors.Is(err, tile.ErrInvalidArgument), "err = %v", err)
}
