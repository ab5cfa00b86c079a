package sstack

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCombineBasics(t *testing.T) {
	tests := []struct {
		name    string
		reducer PixelReducer
		samples []float64
		want    float64
	}{
		{"mean", ReducerFunc(CombineMean), []float64{2, 4, 6}, 4},
		{"median odd", ReducerFunc(CombineMedian), []float64{5, 1, 3}, 3},
		{"median even", ReducerFunc(CombineMedian), []float64{1, 2, 3, 4}, 2.5},
		{"sum", ReducerFunc(CombineSum), []float64{1, 2, 3}, 6},
		{"min", ReducerFunc(CombineMin), []float64{3, 1, 2}, 1},
		{"max", ReducerFunc(CombineMax), []float64{3, 9, 2}, 9},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, rejected := tc.reducer.Reduce(tc.samples)
			if !almostEqual(got, tc.want) {
				t.Errorf("Reduce = %v, want %v", got, tc.want)
			}
			if rejected != 0 {
				t.Errorf("rejected = %d, want 0", rejected)
			}
		})
	}
}

func TestSigmaClip(t *testing.T) {
	tests := []struct {
		name         string
		clip         SigmaClip
		samples      []float64
		want         float64
		wantRejected int
	}{
		{
			name:         "rejects incident outlier",
			clip:         SigmaClip{KLow: 1, KHigh: 1, MaxIterations: 3},
			samples:      []float64{10, 10, 10, 10, 100},
			want:         10,
			wantRejected: 1,
		},
		{
			name:         "clean data untouched",
			clip:         SigmaClip{KLow: 3, KHigh: 3, MaxIterations: 5},
			samples:      []float64{10, 11, 12, 13, 14},
			want:         12,
			wantRejected: 0,
		},
		{
			name:         "asymmetric kappa clips the high side only",
			clip:         SigmaClip{KLow: 10, KHigh: 1, MaxIterations: 5},
			samples:      []float64{0, 10, 10, 10, 20},
			want:         7.5,
			wantRejected: 1,
		},
		{
			name:         "too few samples to estimate",
			clip:         SigmaClip{KLow: 1, KHigh: 1, MaxIterations: 3},
			samples:      []float64{5, 50},
			want:         27.5,
			wantRejected: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, rejected := tc.clip.Reduce(tc.samples)
			if !almostEqual(got, tc.want) {
				t.Errorf("Reduce = %v, want %v", got, tc.want)
			}
			if rejected != tc.wantRejected {
				t.Errorf("rejected = %d, want %d", rejected, tc.wantRejected)
			}
		})
	}
}

func TestWinsorizedClip(t *testing.T) {
	tests := []struct {
		name         string
		clip         WinsorizedClip
		samples      []float64
		want         float64
		wantRejected int
	}{
		{
			name:         "gross outlier cannot hide inside its own sigma",
			clip:         WinsorizedClip{KLow: 3, KHigh: 3},
			samples:      []float64{10, 10, 10, 10, 10, 100},
			want:         10,
			wantRejected: 1,
		},
		{
			name:         "clean data untouched",
			clip:         WinsorizedClip{KLow: 3, KHigh: 3},
			samples:      []float64{10, 11, 12, 13, 14},
			want:         12,
			wantRejected: 0,
		},
		{
			name:         "too few samples to estimate",
			clip:         WinsorizedClip{KLow: 3, KHigh: 3},
			samples:      []float64{5, 50},
			want:         27.5,
			wantRejected: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, rejected := tc.clip.Reduce(tc.samples)
			if !almostEqual(got, tc.want) {
				t.Errorf("Reduce = %v, want %v", got, tc.want)
			}
			if rejected != tc.wantRejected {
				t.Errorf("rejected = %d, want %d", rejected, tc.wantRejected)
			}
		})
	}
}

func TestWeightedMean(t *testing.T) {
	wm := WeightedMean{Weights: []float64{3, 1}}
	got, rejected := wm.Reduce([]float64{10, 20})
	if !almostEqual(got, 12.5) {
		t.Errorf("Reduce = %v, want 12.5", got)
	}
	if rejected != 0 {
		t.Errorf("rejected = %d, want 0", rejected)
	}

	// Mismatched weights degrade to a plain mean.
	wm = WeightedMean{Weights: []float64{1}}
	if got, _ := wm.Reduce([]float64{10, 20}); !almostEqual(got, 15) {
		t.Errorf("mismatched weights: Reduce = %v, want 15", got)
	}
}
