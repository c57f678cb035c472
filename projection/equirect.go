package projection

import (
	"math"

	"github.com/eak1mov/go-skytiles/geo"
	"github.com/eak1mov/go-skytiles/tile"
)

// Equirectangular is the plate carree projection: the level 0 tile spans
// longitudes [-180, 180] left to right and latitudes [90, -90] top to bottom.
type Equirectangular struct{}

func (Equirectangular) Kind() Kind { return KindEquirectangular }

func (Equirectangular) TileToPoint(tileID tile.ID, u, v float64) geo.Point {
	tileID = clampTile(tileID)
	n := float64(tile.GridSize(tileID.Level))
	return geo.Point{
		X: -180 + 360*(float64(tileID.X)+clampUnit(u))/n,
		Y: 90 - 180*(float64(tileID.Y)+clampUnit(v))/n,
	}
}

func (Equirectangular) PointToTile(level uint32, p geo.Point) tile.ID {
	level = min(level, tile.MaxLevel)
	n := tile.GridSize(level)
	lon := p.X
	if lon < -180 || lon > 180 {
		lon = geo.NormalizeLon(lon)
	}
	lat := geo.ClampLat(p.Y)
	if math.IsNaN(lat) {
		lat = 0
	}
	return tile.ID{
		Level: level,
		X:     cellIndex((lon+180)/360, n),
		Y:     cellIndex((90-lat)/180, n),
	}
}
