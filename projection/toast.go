package projection

import (
	"math"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/tile"
)

// ToastSubdivisionDepth is the number of levels below a tile that TileToPoint
// subdivides before interpolating linearly. 8 levels resolve a 256 px tile
// down to single pixels.
const ToastSubdivisionDepth = 8

// Toast is the Tessellated Octahedral Adaptive Subdivision Transform.
//
// The level 0 tile is the octahedron unfolded into a square: the north pole
// is the centre, the south pole is every corner, and the equator is the
// diamond joining the edge midpoints (longitude 0 at the bottom, 90 at the
// right, 180 at the top, -90 at the left). Every tile is made of four
// quadrants, each split into two triangles by the quadrant diagonal that
// avoids the poles. Subdivision uses normalized great circle midpoints.
type Toast struct {
	depth int
}

func NewToast() Toast {
	return Toast{depth: ToastSubdivisionDepth}
}

func (Toast) Kind() Kind { return KindToast }

func (t Toast) TileToPoint(tileID tile.ID, u, v float64) geo.Point {
	tileID = clampTile(tileID)
	u, v = clampUnit(u), clampUnit(v)
	if tileID.Level == 0 {
		return t.rootPoint(u, v)
	}
	return tileQuad(tileID).pointAt(u, v, t.depth).point()
}

func (t Toast) pointGrid(tileID tile.ID, coords []float64) []geo.Point {
	tileID = clampTile(tileID)
	points := make([]geo.Point, 0, len(coords)*len(coords))
	if tileID.Level == 0 {
		for _, v := range coords {
			for _, u := range coords {
				points = append(points, t.rootPoint(clampUnit(u), clampUnit(v)))
			}
		}
		return points
	}
	q := tileQuad(tileID)
	for _, v := range coords {
		for _, u := range coords {
			points = append(points, q.pointAt(clampUnit(u), clampUnit(v), t.depth).point())
		}
	}
	return points
}

func (t Toast) rootPoint(u, v float64) geo.Point {
	qx, qy := 0, 0
	if u >= 0.5 {
		qx, u = 1, u*2-1
	} else {
		u *= 2
	}
	if v >= 0.5 {
		qy, v = 1, v*2-1
	} else {
		v *= 2
	}
	return rootQuads[qx+2*qy].pointAt(u, v, t.depth-1).point()
}

func (Toast) PointToTile(level uint32, p geo.Point) tile.ID {
	level = min(level, tile.MaxLevel)
	if level == 0 {
		return tile.ID{}
	}
	target := lonLatVec(p.X, geo.ClampLat(p.Y))
	if math.IsNaN(target.x) || math.IsNaN(target.y) || math.IsNaN(target.z) {
		target = lonLatVec(0, 0)
	}

	best := bestQuad(rootQuads[:], target)
	q := rootQuads[best]
	x, y := uint32(best&1), uint32(best>>1)
	for range level - 1 {
		children := q.subdivide()
		best = bestQuad(children[:], target)
		q = children[best]
		x, y = x*2+uint32(best&1), y*2+uint32(best>>1)
	}
	return tile.ID{Level: level, X: x, Y: y}
}

func bestQuad(quads []quad, target vec3) int {
	best, bestScore := 0, math.Inf(-1)
	for i, q := range quads {
		if s := q.score(target); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// Face is one of the eight triangles of a TOAST tile: the half of a tile
// quadrant on one side of the quadrant diagonal. The eight faces of the
// level 0 tile are the octahedron faces; each face is quadrisected by the
// four faces of the next level that cover it.
type Face struct {
	Tile     tile.ID
	Quadrant uint8
	Half     uint8
}

// FaceCount returns the number of faces covering the sphere at the given level.
func FaceCount(level uint32) uint64 {
	return 8 << (2 * uint64(level))
}

// Children returns the four faces at the next level covering f.
func (f Face) Children() [4]Face {
	child := f.Tile.Children()[f.Quadrant]
	var result [4]Face
	for i, c := range faceChildren[f.diagonal()][f.Half] {
		result[i] = Face{Tile: child, Quadrant: c[0], Half: c[1]}
	}
	return result
}

func (f Face) diagonal() diagonal {
	if f.Tile.Level == 0 {
		return rootQuads[f.Quadrant].diag
	}
	shift := f.Tile.Level - 1
	return rootQuads[(f.Tile.X>>shift)&1+2*((f.Tile.Y>>shift)&1)].diag
}

// FaceGeometry carries the spherical geometry of a face while walking the
// face tree, so descending one level costs a single subdivision.
type FaceGeometry struct {
	Face Face

	// Outline holds the corners, the edge midpoints and the centroid.
	Outline []geo.Point

	// NorthPole and SouthPole report whether the face touches a pole,
	// in which case it spans every longitude.
	NorthPole bool
	SouthPole bool

	quad quad
}

// RootFaces returns the eight octahedron faces of the level 0 tile.
func (Toast) RootFaces() []FaceGeometry {
	faces := make([]FaceGeometry, 0, 8)
	for q := range uint8(4) {
		for h := range uint8(2) {
			faces = append(faces, newFaceGeometry(Face{Quadrant: q, Half: h}, rootQuads[q]))
		}
	}
	return faces
}

// ChildFaces returns the geometry of the four faces covering g at the next level.
func (Toast) ChildFaces(g FaceGeometry) [4]FaceGeometry {
	subQuads := g.quad.subdivide()
	var result [4]FaceGeometry
	for i, f := range g.Face.Children() {
		result[i] = newFaceGeometry(f, subQuads[f.Quadrant])
	}
	return result
}

// Bounds returns a boundary conservatively enclosing the face.
func (g FaceGeometry) Bounds() geo.Boundary {
	b := geo.BoundsOf(g.Outline)
	if g.NorthPole || g.SouthPole {
		b.West, b.East = -180, 180
	}
	if g.NorthPole {
		b.North = 90
	}
	if g.SouthPole {
		b.South = -90
	}
	// great circle edges bulge towards the poles between their endpoints
	margin := g.span() / 4
	b.North = math.Min(90, b.North+margin)
	b.South = math.Max(-90, b.South-margin)
	return b
}

func (g FaceGeometry) span() float64 {
	a, b, c := g.Outline[0], g.Outline[1], g.Outline[2]
	return math.Max(angle(a, b), math.Max(angle(b, c), angle(c, a)))
}

func angle(a, b geo.Point) float64 {
	d := lonLatVec(a.X, a.Y).dot(lonLatVec(b.X, b.Y))
	return math.Acos(math.Max(-1, math.Min(1, d))) * 180 / math.Pi
}

func newFaceGeometry(f Face, q quad) FaceGeometry {
	tri := q.triangles()[f.Half]
	a, b, c := tri[0], tri[1], tri[2]
	return FaceGeometry{
		Face: f,
		Outline: []geo.Point{
			a.point(), b.point(), c.point(),
			a.add(b).normalize().point(),
			b.add(c).normalize().point(),
			c.add(a).normalize().point(),
			a.add(b).add(c).normalize().point(),
		},
		NorthPole: triangleScore(a, b, c, northPole) >= -1e-12,
		SouthPole: triangleScore(a, b, c, southPole) >= -1e-12,
		quad:      q,
	}
}

type diagonal uint8

const (
	diagTRBL diagonal = iota // split along the top-right / bottom-left diagonal
	diagTLBR
)

// faceChildren lists (quadrant, half) of the child tile faces covering a face,
// indexed by the quadrant diagonal and the face half.
var faceChildren = [2][2][4][2]uint8{
	diagTRBL: {{{0, 0}, {0, 1}, {1, 0}, {2, 0}}, {{3, 0}, {3, 1}, {1, 1}, {2, 1}}},
	diagTLBR: {{{1, 0}, {1, 1}, {0, 0}, {3, 0}}, {{2, 0}, {2, 1}, {0, 1}, {3, 1}}},
}

var (
	northPole = vec3{0, 0, 1}
	southPole = vec3{0, 0, -1}
	lon0      = vec3{1, 0, 0}
	lon90     = vec3{0, 1, 0}
	lon180    = vec3{-1, 0, 0}
	lonM90    = vec3{0, -1, 0}

	// quadrants of the level 0 tile in tile.ID.Children order
	rootQuads = [4]quad{
		{tl: southPole, tr: lon180, bl: lonM90, br: northPole, diag: diagTRBL},
		{tl: lon180, tr: southPole, bl: northPole, br: lon90, diag: diagTLBR},
		{tl: lonM90, tr: northPole, bl: southPole, br: lon0, diag: diagTLBR},
		{tl: northPole, tr: lon90, bl: lon0, br: southPole, diag: diagTRBL},
	}
)

// tileQuad returns the corners of a tile at level 1 or deeper.
func tileQuad(tileID tile.ID) quad {
	shift := tileID.Level - 1
	q := rootQuads[(tileID.X>>shift)&1+2*((tileID.Y>>shift)&1)]
	for s := int(shift) - 1; s >= 0; s-- {
		q = q.subdivide()[(tileID.X>>s)&1+2*((tileID.Y>>s)&1)]
	}
	return q
}

type quad struct {
	tl, tr, bl, br vec3
	diag           diagonal
}

func (q quad) subdivide() [4]quad {
	top := q.tl.add(q.tr).normalize()
	left := q.tl.add(q.bl).normalize()
	right := q.tr.add(q.br).normalize()
	bottom := q.bl.add(q.br).normalize()
	var center vec3
	if q.diag == diagTRBL {
		center = q.tr.add(q.bl).normalize()
	} else {
		center = q.tl.add(q.br).normalize()
	}
	return [4]quad{
		{tl: q.tl, tr: top, bl: left, br: center, diag: q.diag},
		{tl: top, tr: q.tr, bl: center, br: right, diag: q.diag},
		{tl: left, tr: center, bl: q.bl, br: bottom, diag: q.diag},
		{tl: center, tr: right, bl: bottom, br: q.br, diag: q.diag},
	}
}

// triangles returns the two halves of the quad; the first one holds the top
// left corner for diagTRBL and the top right corner for diagTLBR.
func (q quad) triangles() [2][3]vec3 {
	if q.diag == diagTRBL {
		return [2][3]vec3{{q.tl, q.tr, q.bl}, {q.tr, q.br, q.bl}}
	}
	return [2][3]vec3{{q.tl, q.tr, q.br}, {q.tl, q.br, q.bl}}
}

// pointAt descends depth levels towards (u, v) and interpolates inside the
// triangle of the final sub-quad.
func (q quad) pointAt(u, v float64, depth int) vec3 {
	for range depth {
		cx, cy := 0, 0
		if u >= 0.5 {
			cx, u = 1, u*2-1
		} else {
			u *= 2
		}
		if v >= 0.5 {
			cy, v = 1, v*2-1
		} else {
			v *= 2
		}
		q = q.child(cx + 2*cy)
	}
	return q.interpolate(u, v).normalize()
}

func (q quad) child(i int) quad {
	return q.subdivide()[i]
}

func (q quad) interpolate(u, v float64) vec3 {
	if q.diag == diagTRBL {
		if u+v <= 1 {
			return q.tl.add(q.tr.sub(q.tl).scale(u)).add(q.bl.sub(q.tl).scale(v))
		}
		return q.br.add(q.bl.sub(q.br).scale(1 - u)).add(q.tr.sub(q.br).scale(1 - v))
	}
	if u >= v {
		return q.tr.add(q.tl.sub(q.tr).scale(1 - u)).add(q.br.sub(q.tr).scale(v))
	}
	return q.bl.add(q.br.sub(q.bl).scale(u)).add(q.tl.sub(q.bl).scale(1 - v))
}

// score is positive when p is strictly inside the quad, and grows with the
// distance from the nearest edge.
func (q quad) score(p vec3) float64 {
	tris := q.triangles()
	return math.Max(
		triangleScore(tris[0][0], tris[0][1], tris[0][2], p),
		triangleScore(tris[1][0], tris[1][1], tris[1][2], p),
	)
}

func triangleScore(a, b, c, p vec3) float64 {
	s1, s2, s3 := a.cross(b).dot(p), b.cross(c).dot(p), c.cross(a).dot(p)
	if a.cross(b).dot(c) < 0 {
		s1, s2, s3 = -s1, -s2, -s3
	}
	return min(s1, s2, s3)
}

type vec3 struct {
	x, y, z float64
}

func lonLatVec(lon, lat float64) vec3 {
	lonRad, latRad := lon*math.Pi/180, lat*math.Pi/180
	return vec3{
		x: math.Cos(latRad) * math.Cos(lonRad),
		y: math.Cos(latRad) * math.Sin(lonRad),
		z: math.Sin(latRad),
	}
}

func (a vec3) point() geo.Point {
	return geo.Point{
		X: math.Atan2(a.y, a.x) * 180 / math.Pi,
		Y: math.Atan2(a.z, math.Hypot(a.x, a.y)) * 180 / math.Pi,
	}
}

func (a vec3) add(b vec3) vec3 { return vec3{a.x + b.x, a.y + b.y, a.z + b.z} }
func (a vec3) sub(b vec3) vec3 { return vec3{a.x - b.x, a.y - b.y, a.z - b.z} }
func (a vec3) scale(f float64) vec3 { return vec3{a.x * f, a.y * f, a.z * f} }
func (a vec3) dot(b vec3) float64 { return a.x*b.x + a.y*b.y + a.z*b.z }
func (a vec3) length() float64 { return math.Sqrt(a.dot(a)) }
func (a vec3) cross(b vec3) vec3 {
	return vec3{a.y*b.z - a.z*b.y, a.z*b.x - a.x*b.z, a.x*b.y - a.y*b.x}
}

func (a vec3) normalize() vec3 {
	l := a.length()
	if l == 0 {
		return a
	}
	return a.scale(1 / l)
}
