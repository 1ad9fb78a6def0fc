package spatial

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Grid is a row-major biomass field indexed as grid[y][x]
type Grid [][]float64

// GridStats summarises a grid for color-scale calibration
type GridStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// NewGrid allocates a zeroed height×width grid
func NewGrid(width, height int) Grid {
	cells := make([]float64, width*height)
	grid := make(Grid, height)
	for y := range grid {
		grid[y] = cells[y*width : (y+1)*width : (y+1)*width]
	}
	return grid
}

// Clone returns a deep copy of the grid
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	c := NewGrid(g.Width(), g.Height())
	for y, row := range g {
		copy(c[y], row)
	}
	return c
}

// Width returns the number of columns
func (g Grid) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Height returns the number of rows
func (g Grid) Height() int {
	return len(g)
}

// Stats returns the minimum, maximum and mean cell value
func (g Grid) Stats() GridStats {
	if g.Width() == 0 {
		return GridStats{}
	}

	stats := GridStats{Min: math.Inf(1), Max: math.Inf(-1)}
	total := 0.0
	for _, row := range g {
		stats.Min = math.Min(stats.Min, floats.Min(row))
		stats.Max = math.Max(stats.Max, floats.Max(row))
		total += floats.Sum(row)
	}
	stats.Mean = total / float64(g.Width()*g.Height())
	return stats
}
