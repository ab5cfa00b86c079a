package sstack

import(
	"fmt"

	"github.com/gnthibault/siril-sub007/pkg/smath"
)

// A MemFrameSet holds every frame in memory, one Grid per channel.
// It exists for synthetic data and tests; real runs stream rows from
// files instead.
type MemFrameSet struct {
	Shape ImageShape

	// ReadHook, when set, runs before every ReadRows and can fail the
	// read. Tests use it to inject I/O faults and observe scheduling.
	ReadHook func(frame, channel, startRow, endRow int) error

	frames [][]smath.Grid // frames[frame][channel]
}

func NewMemFrameSet(shape ImageShape, nbFrames int) *MemFrameSet {
	fs := MemFrameSet{Shape: shape, frames: make([][]smath.Grid, nbFrames)}
	for f := range fs.frames {
		fs.frames[f] = make([]smath.Grid, shape.Channels)
		for ch := range fs.frames[f] {
			fs.frames[f][ch] = smath.NewGrid(shape.Width, shape.Height)
		}
	}
	return &fs
}

// FillFrame computes every sample of one frame from f.
func (fs *MemFrameSet)FillFrame(frame int, f func(channel, x, y int) float64) {
	for ch := 0; ch < fs.Shape.Channels; ch++ {
		for y := 0; y < fs.Shape.Height; y++ {
			for x := 0; x < fs.Shape.Width; x++ {
				fs.frames[frame][ch].Set(x, y, f(ch, x, y))
			}
		}
	}
}

func (fs *MemFrameSet)SetSample(frame, channel, x, y int, v float64) {
	fs.frames[frame][channel].Set(x, y, v)
}

// Implement FrameRowReader
func (fs *MemFrameSet)NumFrames() int { return len(fs.frames) }

func (fs *MemFrameSet)ReadRows(frame, channel, startRow, endRow int, dst []float64) error {
	if fs.ReadHook != nil {
		if err := fs.ReadHook(frame, channel, startRow, endRow); err != nil {
			return err
		}
	}
	if frame < 0 || frame >= len(fs.frames) {
		return fmt.Errorf("frame %d out of range [0,%d)", frame, len(fs.frames))
	}
	if err := checkRowRange(fs.Shape, channel, startRow, endRow); err != nil {
		return err
	}

	w := fs.Shape.Width
	for y := startRow; y <= endRow; y++ {
		copy(dst[(y-startRow)*w:(y-startRow+1)*w], fs.frames[frame][channel].Row(y))
	}
	return nil
}
