package smath

import(
	"math"
	"sort"
)

// Order statistics over small sample sets. These reorder their inputs
// rather than allocate; callers that care about ordering pass a copy.

// Median sorts x in place and returns the midpoint value (the mean of
// the two central values when len(x) is even).
func Median(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sort.Float64s(x)
	n := len(x)
	if n%2 == 1 {
		return x[n/2]
	}
	return (x[n/2-1] + x[n/2]) / 2.0
}

// MAD returns the median absolute deviation about the median. It
// reorders x, and allocates a scratch copy for the deviations.
func MAD(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	m := Median(x)
	devs := make([]float64, len(x))
	for i, v := range x {
		devs[i] = math.Abs(v - m)
	}
	return Median(devs)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo { return lo }
	if v > hi { return hi }
	return v
}

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
// The input is assumed to be in the range [0,1]
func GammaExpand_F64(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055 * math.Pow(f, 1.0/2.4) - 0.055
}
