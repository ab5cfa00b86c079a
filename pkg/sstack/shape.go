package sstack

import(
	"errors"
	"fmt"
)

// An ImageShape describes the geometry shared by every frame in a
// stacking sequence. All frames must agree on it before a plan can be
// built.
type ImageShape struct {
	Width    int
	Height   int
	Channels int
}

func (s ImageShape)Validate() error {
	if s.Width < 1 || s.Height < 1 || s.Channels < 1 {
		return fmt.Errorf("bad image shape %s, all dimensions must be positive", s)
	}
	return nil
}

func (s ImageShape)String() string {
	return fmt.Sprintf("%dx%d/%dch", s.Width, s.Height, s.Channels)
}

// A Block is the unit of stacking work: a run of whole rows from a
// single channel. Row indexes are 0-based and inclusive at both ends.
type Block struct {
	Channel  int
	StartRow int
	EndRow   int
}

func (b Block)Rows() int { return b.EndRow - b.StartRow + 1 }

func (b Block)String() string {
	return fmt.Sprintf("blk[ch%d rows %d-%d]", b.Channel, b.StartRow, b.EndRow)
}

// A BlockPlan is the complete recipe for one stacking run: the blocks
// to process, in canonical order (channel ascending, then StartRow
// ascending), plus the budget figures the plan was built against.
type BlockPlan struct {
	Shape     ImageShape
	MaxRows   int64
	NbThreads int

	Blocks           []Block
	LargestBlockRows int
	NbBlocks         int
}

func (p *BlockPlan)String() string {
	return fmt.Sprintf("plan[%s, %d blocks, largest %d rows, budget %d rows / %d threads]",
		p.Shape, p.NbBlocks, p.LargestBlockRows, p.MaxRows, p.NbThreads)
}

func checkRowRange(shape ImageShape, channel, startRow, endRow int) error {
	if channel < 0 || channel >= shape.Channels {
		return fmt.Errorf("channel %d out of range [0,%d)", channel, shape.Channels)
	}
	if startRow < 0 || endRow < startRow || endRow >= shape.Height {
		return fmt.Errorf("row range %d-%d outside [0,%d)", startRow, endRow, shape.Height)
	}
	return nil
}

// ErrInsufficientMemory means the row budget cannot cover even one-row
// blocks on every worker, so no legal plan exists.
var ErrInsufficientMemory = errors.New("insufficient memory for parallel stacking")

// RowBudget converts a byte budget into the planner's row unit: the
// number of output rows whose per-frame pixel rows may be resident at
// once. One output row costs nbFrames*width*bytesPerSample bytes of
// frame data, plus half as much again when a rejection strategy keeps
// working copies of the samples.
func RowBudget(budgetBytes int64, nbFrames, width, bytesPerSample int, rejection bool) int64 {
	perRow := int64(nbFrames) * int64(width) * int64(bytesPerSample)
	if rejection {
		perRow += perRow / 2
	}
	if perRow < 1 {
		return 0
	}
	return budgetBytes / perRow
}
