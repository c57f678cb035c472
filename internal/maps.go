package internal

import (
	"image/color"
	"math"

	"github.com/eak1mov/go-skytiles/geo"
)

// ColorFunc adapts a function to grid.ColorMap.
type ColorFunc func(lon, lat float64) color.NRGBA

func (f ColorFunc) ColorAt(lon, lat float64) color.NRGBA { return f(lon, lat) }

// ValueFunc adapts a function to grid.ValueMap.
type ValueFunc func(lon, lat float64) float64

func (f ValueFunc) ValueAt(lon, lat float64) float64 { return f(lon, lat) }

// SolidColor is opaque c inside b and transparent outside.
func SolidColor(b geo.Boundary, c color.NRGBA) ColorFunc {
	return func(lon, lat float64) color.NRGBA {
		if b.Contains(geo.Point{X: lon, Y: lat}) {
			return c
		}
		return color.NRGBA{}
	}
}

// Height is a smooth elevation field: lat*10 + lon, NaN outside b.
func Height(b geo.Boundary) ValueFunc {
	return func(lon, lat float64) float64 {
		if !b.Contains(geo.Point{X: lon, Y: lat}) {
			return math.NaN()
		}
		return lat*10 + lon
	}
}
