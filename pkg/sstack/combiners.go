package sstack

import(
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gnthibault/siril-sub007/pkg/smath"
)

// A PixelReducer folds the per-frame samples of one pixel position
// into a single stacked value, also reporting how many samples it
// rejected along the way. Reduce may reorder `samples`, and is called
// concurrently from many workers, so implementations must not retain
// the slice between calls.
type PixelReducer interface {
	Reduce(samples []float64) (value float64, rejected int)
}

// ReducerFunc adapts a plain function to the PixelReducer interface.
type ReducerFunc func([]float64) (float64, int)

func (f ReducerFunc)Reduce(samples []float64) (float64, int) { return f(samples) }

// {{{ CombineMean, CombineMedian, CombineSum, CombineMin, CombineMax

func CombineMean(samples []float64) (float64, int) {
	return stat.Mean(samples, nil), 0
}

func CombineMedian(samples []float64) (float64, int) {
	return smath.Median(samples), 0
}

// CombineSum integrates rather than averages; the result usually needs
// the HDR output path, since it won't fit a 16-bit range.
func CombineSum(samples []float64) (float64, int) {
	return floats.Sum(samples), 0
}

func CombineMin(samples []float64) (float64, int) {
	return floats.Min(samples), 0
}

func CombineMax(samples []float64) (float64, int) {
	return floats.Max(samples), 0
}

// }}}
// {{{ SigmaClip

// SigmaClip is iterative kappa-sigma rejection: samples outside
// mean ± k·stddev are dropped, the estimates recomputed, and so on
// until the survivor set stops shrinking or MaxIterations is hit. The
// survivors' mean is the stacked value. This is the workhorse for
// removing satellite trails and cosmic ray hits.
type SigmaClip struct {
	KLow          float64
	KHigh         float64
	MaxIterations int
}

func (sc SigmaClip)Reduce(samples []float64) (float64, int) {
	kept := samples
	iters := sc.MaxIterations
	if iters < 1 { iters = 1 }

	for iter := 0; iter < iters; iter++ {
		if len(kept) < 3 {
			break
		}
		mean, std := stat.MeanStdDev(kept, nil)
		if std == 0 {
			break
		}
		lo := mean - sc.KLow*std
		hi := mean + sc.KHigh*std

		j := 0
		for _, v := range kept {
			if v >= lo && v <= hi {
				kept[j] = v
				j++
			}
		}
		if j == 0 || j == len(kept) {
			break
		}
		kept = kept[:j]
	}

	return stat.Mean(kept, nil), len(samples) - len(kept)
}

// }}}
// {{{ WinsorizedClip

// WinsorizedClip estimates center and spread on a winsorized copy of
// the samples, so that gross outliers can't inflate the estimates they
// are judged against, then rejects and means like SigmaClip. The
// clamp-and-re-estimate loop runs until the spread settles.
type WinsorizedClip struct {
	KLow  float64
	KHigh float64
}

func (wc WinsorizedClip)Reduce(samples []float64) (float64, int) {
	n := len(samples)
	if n < 3 {
		return stat.Mean(samples, nil), 0
	}

	work := make([]float64, n)
	copy(work, samples)
	center := smath.Median(work)
	std := 1.4826 * smath.MAD(work) // initial spread from MAD; gross outliers can't inflate it
	if std == 0 {
		_, std = stat.MeanStdDev(work, nil)
	}

	for iter := 0; iter < 8 && std > 0; iter++ {
		for i, v := range work {
			work[i] = smath.Clamp(v, center-1.5*std, center+1.5*std)
		}
		center = smath.Median(work)
		_, s2 := stat.MeanStdDev(work, nil)
		s2 *= 1.134 // undoes the variance shrink of 1.5-sigma clamping

		settled := math.Abs(s2-std) < 0.0005*std
		std = s2
		if settled {
			break
		}
	}

	lo := center - wc.KLow*std
	hi := center + wc.KHigh*std
	j := 0
	for _, v := range samples {
		if v >= lo && v <= hi {
			samples[j] = v
			j++
		}
	}
	if j == 0 {
		return center, n
	}
	return stat.Mean(samples[:j], nil), n - j
}

// }}}
// {{{ WeightedMean

// WeightedMean weights each frame's sample, typically by how much
// light the frame gathered. Weights align with frame order and stay
// fixed for the whole run. Weighting does not combine with rejection.
type WeightedMean struct {
	Weights []float64
}

func (wm WeightedMean)Reduce(samples []float64) (float64, int) {
	if len(wm.Weights) != len(samples) {
		return stat.Mean(samples, nil), 0
	}
	return stat.Mean(samples, wm.Weights), 0
}

// }}}

// {{{ -------------------------={ E N D }=----------------------------------

// Local variables:
// folded-file: t
// end:

// }}}
