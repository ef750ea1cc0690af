package render

import (
	"errors"
	"math"
)

// valueGrid rasterizes station values onto a regular lat/lon grid. Cells
// holding at least one station take the mean of their stations' values; the
// remaining cells are filled by inverse-distance weighting against the
// occupied cells, so the heat map has no holes.
//
// It implements plotter.GridXYZ: columns map to longitude, rows to latitude,
// both addressed at cell centres.
type valueGrid struct {
	region  Region
	spacing float64
	cols    int
	rows    int
	values  []float64
}

func newValueGrid(points []StationValue, region Region, spacing float64) (*valueGrid, error) {
	cols := int(math.Round((region.MaxLon - region.MinLon) / spacing))
	rows := int(math.Round((region.MaxLat - region.MinLat) / spacing))
	if cols < 1 || rows < 1 {
		return nil, errors.New("grid spacing is larger than the region")
	}

	g := &valueGrid{
		region:  region,
		spacing: spacing,
		cols:    cols,
		rows:    rows,
		values:  make([]float64, cols*rows),
	}

	sums := make([]float64, cols*rows)
	counts := make([]int, cols*rows)
	for _, p := range points {
		if !region.Contains(p.Station.Lat, p.Station.Lon) {
			continue
		}
		c := int((p.Station.Lon - region.MinLon) / spacing)
		r := int((p.Station.Lat - region.MinLat) / spacing)
		if c >= cols {
			c = cols - 1
		}
		if r >= rows {
			r = rows - 1
		}
		sums[r*cols+c] += p.Value
		counts[r*cols+c]++
	}

	type anchor struct {
		x, y, v float64
	}
	var anchors []anchor
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if counts[i] == 0 {
				continue
			}
			g.values[i] = sums[i] / float64(counts[i])
			anchors = append(anchors, anchor{x: g.X(c), y: g.Y(r), v: g.values[i]})
		}
	}
	if len(anchors) == 0 {
		return nil, errors.New("no stations inside the region")
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if counts[i] > 0 {
				continue
			}
			x, y := g.X(c), g.Y(r)
			var num, den float64
			for _, a := range anchors {
				d2 := (a.x-x)*(a.x-x) + (a.y-y)*(a.y-y)
				w := 1 / d2
				num += w * a.v
				den += w
			}
			g.values[i] = num / den
		}
	}
	return g, nil
}

func (g *valueGrid) Dims() (c, r int) { return g.cols, g.rows }

func (g *valueGrid) Z(c, r int) float64 { return g.values[r*g.cols+c] }

func (g *valueGrid) X(c int) float64 {
	return g.region.MinLon + (float64(c)+0.5)*g.spacing
}

func (g *valueGrid) Y(r int) float64 {
	return g.region.MinLat + (float64(r)+0.5)*g.spacing
}
