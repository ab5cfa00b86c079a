package smath

import(
	"fmt"
	"math"
)

// A Grid is a dense 2D plane of float64 samples, stored row-major.
// It is the in-memory representation of one channel of image data.
type Grid struct {
	stride int
	values []float64
}

func NewGrid(w, h int) Grid {
	return Grid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (g *Grid)Set(x, y int, v float64) { g.values[g.stride*y + x] = v }
func (g *Grid)Get(x, y int) float64    { return g.values[g.stride*y + x] }
func (g *Grid)Dx() int                 { return g.stride }
func (g *Grid)Dy() int                 { return len(g.values) / g.stride }

// Row returns the y'th row as a slice aliasing the grid's storage, so
// writes through it mutate the grid.
func (g *Grid)Row(y int) []float64 {
	return g.values[g.stride*y : g.stride*(y+1)]
}

func (g *Grid)SetRow(y int, vals []float64) {
	copy(g.values[g.stride*y:], vals[:g.stride])
}

func (g *Grid)MinMax() (float64, float64) {
	min := math.MaxFloat64
	max := -1.0 * min

	for i:=0 ; i<len(g.values) ; i++ {
		if g.values[i] > max { max = g.values[i] }
		if g.values[i] < min { min = g.values[i] }
	}
	return min, max
}

func (g *Grid)Stats() string {
	min, max := g.MinMax()
	return fmt.Sprintf("grid[%dx%d, vals{%f,%f}]", g.Dx(), g.Dy(), min, max)
}
