package grid

import (
	"fmt"
	"image/color"
	"math"

	"github.com/eak1mov/go-skytiles/tile"
)

// ColorMap supplies the color of a geographic point.
type ColorMap interface {
	ColorAt(lon, lat float64) color.NRGBA
}

// ValueMap supplies a scalar, typically an elevation in meters, for a geographic point.
type ValueMap interface {
	ValueAt(lon, lat float64) float64
}

// ImageColorMap samples an ImageGrid bilinearly. Points outside the grid are transparent.
type ImageColorMap struct {
	m    *ProjectedMap
	grid *ImageGrid
}

func NewImageColorMap(m *ProjectedMap) (*ImageColorMap, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil projected map", tile.ErrInvalidArgument)
	}
	g, ok := m.grid.(*ImageGrid)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not an image grid", tile.ErrInvalidArgument, m.grid)
	}
	return &ImageColorMap{m: m, grid: g}, nil
}

func (c *ImageColorMap) ColorAt(lon, lat float64) color.NRGBA {
	if !c.m.InRange(lon, lat) {
		return color.NRGBA{}
	}
	r0, c0, fr, fc := bilinear(c.m.Index(lon, lat))

	// blend premultiplied so transparent neighbours do not darken the result
	var sum [4]float64
	for _, s := range [4]struct {
		row, col int
		w        float64
	}{
		{r0, c0, (1 - fr) * (1 - fc)},
		{r0, c0 + 1, (1 - fr) * fc},
		{r0 + 1, c0, fr * (1 - fc)},
		{r0 + 1, c0 + 1, fr * fc},
	} {
		if s.w == 0 {
			continue
		}
		p := c.grid.Sample(s.row, c.m.column(s.col))
		a := float64(p.A) * s.w
		sum[0] += float64(p.R) * a
		sum[1] += float64(p.G) * a
		sum[2] += float64(p.B) * a
		sum[3] += a
	}
	if sum[3] < 0.5 {
		return color.NRGBA{}
	}
	return color.NRGBA{
		R: toByte(sum[0] / sum[3]),
		G: toByte(sum[1] / sum[3]),
		B: toByte(sum[2] / sum[3]),
		A: toByte(sum[3]),
	}
}

func toByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

type elevationOptions struct {
	fill    float64
	hasFill bool
}

type ElevationOption func(*elevationOptions)

// WithFill makes points outside the grid report v instead of NaN.
func WithFill(v float64) ElevationOption {
	return func(o *elevationOptions) {
		o.fill, o.hasFill = v, true
	}
}

// ElevationValueMap samples an ElevationGrid bilinearly.
type ElevationValueMap struct {
	m    *ProjectedMap
	grid *ElevationGrid
	opts elevationOptions
}

func NewElevationValueMap(m *ProjectedMap, opts ...ElevationOption) (*ElevationValueMap, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil projected map", tile.ErrInvalidArgument)
	}
	g, ok := m.grid.(*ElevationGrid)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not an elevation grid", tile.ErrInvalidArgument, m.grid)
	}
	v := &ElevationValueMap{m: m, grid: g}
	for _, opt := range opts {
		opt(&v.opts)
	}
	return v, nil
}

func (v *ElevationValueMap) ValueAt(lon, lat float64) float64 {
	if !v.m.InRange(lon, lat) {
		if v.opts.hasFill {
			return v.opts.fill
		}
		return math.NaN()
	}
	r0, c0, fr, fc := bilinear(v.m.Index(lon, lat))
	left, right := v.m.column(c0), v.m.column(c0+1)
	top := lerp(float64(v.grid.Sample(r0, left)), float64(v.grid.Sample(r0, right)), fc)
	bottom := lerp(float64(v.grid.Sample(r0+1, left)), float64(v.grid.Sample(r0+1, right)), fc)
	return lerp(top, bottom, fr)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// metersPerDegree is the length of one degree of latitude.
const metersPerDegree = 111320

// ReliefColorMap colors an elevation grid by height and shades it by the
// slope towards a light source in the north west.
type ReliefColorMap struct {
	values       *ElevationValueMap
	azimuth      float64 // radians, clockwise from north
	altitude     float64 // radians above the horizon
	exaggeration float64
}

func NewReliefColorMap(m *ProjectedMap) (*ReliefColorMap, error) {
	values, err := NewElevationValueMap(m)
	if err != nil {
		return nil, err
	}
	return &ReliefColorMap{
		values:       values,
		azimuth:      315 * math.Pi / 180,
		altitude:     45 * math.Pi / 180,
		exaggeration: 1,
	}, nil
}

func (r *ReliefColorMap) ColorAt(lon, lat float64) color.NRGBA {
	m := r.values.m
	if !m.InRange(lon, lat) {
		return color.NRGBA{}
	}
	g := r.values.grid
	row, col := m.Index(lon, lat)
	ri, ci := int(math.Round(row)), int(math.Round(col))

	b := m.boundary
	width := b.Width()
	if b.SpansFullLongitude() {
		width = 360
	}
	cellX := width / float64(g.Width()) * metersPerDegree * math.Max(0.01, math.Cos(lat*math.Pi/180))
	cellY := b.Height() / float64(g.Height()) * metersPerDegree

	ci = m.column(ci)
	dzdx := (float64(g.Sample(ri, m.column(ci+1))) - float64(g.Sample(ri, m.column(ci-1)))) / (2 * cellX)
	dzdy := (float64(g.Sample(ri+1, ci)) - float64(g.Sample(ri-1, ci))) / (2 * cellY)

	slope := math.Atan(r.exaggeration * math.Hypot(dzdx, dzdy))
	aspect := math.Atan2(dzdy, -dzdx)
	zenith := math.Pi/2 - r.altitude
	azimuth := math.Pi/2 - r.azimuth
	shade := math.Cos(zenith)*math.Cos(slope) + math.Sin(zenith)*math.Sin(slope)*math.Cos(azimuth-aspect)
	shade = 0.35 + 0.65*math.Max(0, math.Min(1, shade))

	base := hypsometric(r.values.ValueAt(lon, lat))
	return color.NRGBA{
		R: toByte(float64(base.R) * shade),
		G: toByte(float64(base.G) * shade),
		B: toByte(float64(base.B) * shade),
		A: 255,
	}
}

var hypsometricStops = []struct {
	height float64
	color  color.NRGBA
}{
	{-11000, color.NRGBA{R: 8, G: 24, B: 88, A: 255}},
	{-1, color.NRGBA{R: 120, G: 170, B: 220, A: 255}},
	{0, color.NRGBA{R: 70, G: 130, B: 70, A: 255}},
	{1000, color.NRGBA{R: 200, G: 190, B: 110, A: 255}},
	{3000, color.NRGBA{R: 150, G: 105, B: 75, A: 255}},
	{6000, color.NRGBA{R: 250, G: 250, B: 250, A: 255}},
}

func hypsometric(h float64) color.NRGBA {
	if math.IsNaN(h) || h <= hypsometricStops[0].height {
		return hypsometricStops[0].color
	}
	for i := 1; i < len(hypsometricStops); i++ {
		hi := hypsometricStops[i]
		if h > hi.height {
			continue
		}
		lo := hypsometricStops[i-1]
		t := (h - lo.height) / (hi.height - lo.height)
		return color.NRGBA{
			R: toByte(lerp(float64(lo.color.R), float64(hi.color.R), t)),
			G: toByte(lerp(float64(lo.color.G), float64(hi.color.G), t)),
			B: toByte(lerp(float64(lo.color.B), float64(hi.color.B), t)),
			A: 255,
		}
	}
	return hypsometricStops[len(hypsometricStops)-1].color
}
