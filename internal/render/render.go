// Package render draws station values as a national heat map. Rendering is
// delegated to gonum's plot stack; this package only rasterizes stations
// onto a grid and picks palettes.
package render

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gaugeworks/floodgauge/internal/domain"
)

// DefaultGridSpacing is the cell size in degrees.
const DefaultGridSpacing = 0.05

// Region is a latitude/longitude bounding box.
type Region struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// EnglandWales covers the area the measure network spans.
var EnglandWales = Region{MinLon: -5.5, MaxLon: 2.0, MinLat: 50.0, MaxLat: 55.0}

// Contains reports whether the point falls inside the region.
func (r Region) Contains(lat, lon float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lon >= r.MinLon && lon <= r.MaxLon
}

// Style selects the colour mapping.
type Style int

const (
	// StyleDiverging ramps blue to red around the scale midpoint, suited
	// to relative river levels where 1.0 marks the typical-range top.
	StyleDiverging Style = iota

	// StyleSequential ramps through a single heat scale, suited to
	// rainfall totals.
	StyleSequential
)

// StationValue pairs a station with the value to plot at its position.
type StationValue struct {
	Station domain.Station
	Value   float64
}

// Config controls one render.
type Config struct {
	Region      Region  // zero value selects EnglandWales
	GridSpacing float64 // zero value selects DefaultGridSpacing
	Style       Style
	MinValue    float64 // colour scale bounds; both zero derives them from data
	MaxValue    float64
	Title       string
}

// Render draws a filled value surface with station markers and writes it as
// a PNG to path.
func Render(points []StationValue, cfg Config, path string) error {
	if cfg.Region == (Region{}) {
		cfg.Region = EnglandWales
	}
	if cfg.GridSpacing <= 0 {
		cfg.GridSpacing = DefaultGridSpacing
	}

	grid, err := newValueGrid(points, cfg.Region, cfg.GridSpacing)
	if err != nil {
		return err
	}

	minV, maxV := cfg.MinValue, cfg.MaxValue
	if minV == 0 && maxV == 0 {
		minV, maxV = valueBounds(points, cfg.Region)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%g to %g)", cfg.Title, minV, maxV)
	p.X.Label.Text = "longitude"
	p.Y.Label.Text = "latitude"

	heat := plotter.NewHeatMap(grid, heatPalette(cfg.Style, minV, maxV))
	heat.Min = minV
	heat.Max = maxV
	p.Add(heat)

	xys := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		if !cfg.Region.Contains(pt.Station.Lat, pt.Station.Lon) {
			continue
		}
		xys = append(xys, plotter.XY{X: pt.Station.Lon, Y: pt.Station.Lat})
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("build station markers: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Color = color.Gray{Y: 32}
	p.Add(scatter)

	if err := p.Save(24*vg.Centimeter, 16*vg.Centimeter, path); err != nil {
		return fmt.Errorf("save map: %w", err)
	}
	return nil
}

func heatPalette(style Style, minV, maxV float64) palette.Palette {
	if style == StyleSequential {
		return palette.Heat(255, 1)
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(minV)
	cm.SetMax(maxV)
	return cm.Palette(255)
}

func valueBounds(points []StationValue, region Region) (minV, maxV float64) {
	first := true
	for _, p := range points {
		if !region.Contains(p.Station.Lat, p.Station.Lon) {
			continue
		}
		if first || p.Value < minV {
			minV = p.Value
		}
		if first || p.Value > maxV {
			maxV = p.Value
		}
		first = false
	}
	return minV, maxV
}
