package projection

import (
	"math"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/tile"
)

// MercatorMaxLat is the latitude of the top edge of the level 0 Mercator tile.
var MercatorMaxLat = math.Atan(math.Sinh(math.Pi)) * 180 / math.Pi

// Mercator is the spherical web tiling projection.
type Mercator struct{}

func (Mercator) Kind() Kind { return KindMercator }

func (Mercator) TileToPoint(tileID tile.ID, u, v float64) geo.Point {
	tileID = clampTile(tileID)
	n := float64(tile.GridSize(tileID.Level))
	fy := (float64(tileID.Y) + clampUnit(v)) / n
	return geo.Point{
		X: -180 + 360*(float64(tileID.X)+clampUnit(u))/n,
		Y: math.Atan(math.Sinh(math.Pi*(1-2*fy))) * 180 / math.Pi,
	}
}

func (Mercator) PointToTile(level uint32, p geo.Point) tile.ID {
	level = min(level, tile.MaxLevel)
	n := tile.GridSize(level)
	lon := p.X
	if lon < -180 || lon > 180 {
		lon = geo.NormalizeLon(lon)
	}
	lat := math.Max(-MercatorMaxLat, math.Min(MercatorMaxLat, p.Y))
	if math.IsNaN(lat) {
		lat = 0
	}
	latRad := lat * math.Pi / 180
	fy := (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2
	return tile.ID{
		Level: level,
		X:     cellIndex((lon+180)/360, n),
		Y:     cellIndex(fy, n),
	}
}
