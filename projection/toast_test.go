package projection_test

import (
	"math"
	"testing"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/projection"
	"github.com/eak1mov/go-skytiles/tile"
	"github.com/google/go-cmp/cmp"
)

func TestToastRootLayout(t *testing.T) {
	p := projection.NewToast()
	root := tile.ID{}
	for _, tc := range []struct {
		name string
		u, v float64
		want geo.Point
	}{
		{"Bottom", 0.5, 1, geo.Point{X: 0, Y: 0}},
		{"Right", 1, 0.5, geo.Point{X: 90, Y: 0}},
		{"Left", 0, 0.5, geo.Point{X: -90, Y: 0}},
	} {
		if diff := cmp.Diff(tc.want, p.TileToPoint(root, tc.u, tc.v), approx); diff != "" {
			t.Errorf("%v: TileToPoint(root, %v, %v) mismatch (-want+got):\n%v", tc.name, tc.u, tc.v, diff)
		}
	}

	if got := p.TileToPoint(root, 0.5, 0.5); math.Abs(got.Y-90) > 1e-9 {
		t.Errorf("centre latitude = %v, want north pole", got.Y)
	}
	for _, corner := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		if got := p.TileToPoint(root, corner[0], corner[1]); math.Abs(got.Y+90) > 1e-9 {
			t.Errorf("corner %v latitude = %v, want south pole", corner, got.Y)
		}
	}
	if got := p.TileToPoint(root, 0.5, 0); math.Abs(math.Abs(got.X)-180) > 1e-9 || math.Abs(got.Y) > 1e-9 {
		t.Errorf("top edge midpoint = %v, want antimeridian on the equator", got)
	}
}

func TestToastSharedEdges(t *testing.T) {
	p := projection.NewToast()
	for level := uint32(1); level <= 4; level++ {
		n := tile.GridSize(level)
		for x := range n - 1 {
			for y := range n {
				left := tile.ID{Level: level, X: x, Y: y}
				right := tile.ID{Level: level, X: x + 1, Y: y}
				for _, v := range []float64{0, 0.25, 0.5, 1} {
					a := p.TileToPoint(left, 1, v)
					b := p.TileToPoint(right, 0, v)
					if angularDistance(a, b) > 1e-9 {
						t.Fatalf("edge mismatch between %v and %v at v=%v: %v != %v", left, right, v, a, b)
					}
				}
			}
		}
	}
}

func TestToastNoPanics(t *testing.T) {
	p := projection.NewToast()
	for level := range uint32(4) {
		for x := range tile.GridSize(level) {
			for y := range tile.GridSize(level) {
				for _, uv := range [][2]float64{{0, 0}, {1, 1}, {0.5, 0.5}, {-3, 7}, {math.NaN(), 1}} {
					pt := p.TileToPoint(tile.ID{Level: level, X: x, Y: y}, uv[0], uv[1])
					if math.IsNaN(pt.X) || math.IsNaN(pt.Y) {
						t.Fatalf("TileToPoint returned NaN for L%dX%dY%d %v", level, x, y, uv)
					}
				}
			}
		}
	}
	for _, pt := range []geo.Point{{X: 0, Y: 90}, {X: 0, Y: -90}, {X: 180, Y: 0}, {X: -180, Y: 0}, {X: 500, Y: 200}, {X: math.NaN(), Y: 0}} {
		if got := p.PointToTile(6, pt); !got.Valid() {
			t.Errorf("PointToTile(6, %v) = %v is not valid", pt, got)
		}
	}
}

func TestToastFaces(t *testing.T) {
	p := projection.NewToast()
	faces := p.RootFaces()
	if len(faces) != 8 {
		t.Fatalf("len(RootFaces()) = %v, want = 8", len(faces))
	}
	for level := range uint32(4) {
		if got, want := uint64(len(faces)), projection.FaceCount(level); got != want {
			t.Fatalf("level %v: %v faces, want = %v", level, got, want)
		}
		seen := make(map[projection.Face]bool)
		perTile := make(map[tile.ID]int)
		for _, f := range faces {
			if seen[f.Face] {
				t.Fatalf("duplicate face %v", f.Face)
			}
			seen[f.Face] = true
			perTile[f.Face.Tile]++
		}
		if got, want := len(perTile), int(tile.GridSize(level)*tile.GridSize(level)); got != want {
			t.Fatalf("level %v: faces span %v tiles, want = %v", level, got, want)
		}
		for id, count := range perTile {
			if count != 8 {
				t.Fatalf("tile %v has %v faces, want = 8", id, count)
			}
		}

		var next []projection.FaceGeometry
		for _, f := range faces {
			for _, c := range p.ChildFaces(f) {
				if c.Face.Tile.Parent() != f.Face.Tile {
					t.Fatalf("child face %v is not inside tile %v", c.Face, f.Face.Tile)
				}
				if !f.Bounds().Intersects(c.Bounds()) {
					t.Fatalf("child face %v does not touch parent %v", c.Face, f.Face)
				}
				next = append(next, c)
			}
		}
		faces = next
	}
}

func TestToastPoleFaces(t *testing.T) {
	north, south := 0, 0
	for _, f := range projection.NewToast().RootFaces() {
		if f.NorthPole {
			north++
		}
		if f.SouthPole {
			south++
		}
		if b := f.Bounds(); (f.NorthPole || f.SouthPole) && !b.SpansFullLongitude() {
			t.Errorf("pole face %v bounds %v do not span all longitudes", f.Face, b)
		}
	}
	if north != 4 || south != 4 {
		t.Errorf("pole faces north=%v south=%v, want 4 and 4", north, south)
	}
}

func angularDistance(a, b geo.Point) float64 {
	la, lb := a.Y*math.Pi/180, b.Y*math.Pi/180
	dlon := (a.X - b.X) * math.Pi / 180
	d := math.Sin(la)*math.Sin(lb) + math.Cos(la)*math.Cos(lb)*math.Cos(dlon)
	return math.Acos(math.Max(-1, math.Min(1, d)))
}
