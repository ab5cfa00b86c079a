package sstack

import(
	"fmt"
)

// Partition cuts the image into row-aligned per-channel blocks such
// that nbThreads of the largest blocks can be resident at once without
// blowing the row budget. It is pure planning: no IO, no goroutines.
//
// Three regimes, checked in order:
//
//  1. nbThreads > maxRows: even one-row blocks on every worker would
//     exceed the budget, so there is no legal plan at all.
//  2. Memory abundant (height*nbThreads <= maxRows): blocks exist only
//     to spread work across workers. One block per channel when the
//     workers are few; otherwise one block per worker, spread as
//     evenly as the channels allow.
//  3. Memory constrained: no block may exceed maxRows/nbThreads rows.
//     Each channel is cut into equal-ish runs of at most that many
//     rows, and cut finer still if that leaves too few blocks to keep
//     every worker fed.
//
// The returned blocks are in canonical order: channel ascending, then
// StartRow ascending. Same inputs always give the same plan.
func Partition(shape ImageShape, maxRows int64, nbThreads int) (*BlockPlan, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if nbThreads < 1 {
		return nil, fmt.Errorf("partition %s: nbThreads %d, must be positive", shape, nbThreads)
	}
	if int64(nbThreads) > maxRows {
		return nil, fmt.Errorf("partition %s: %d threads need %d resident rows, budget is %d: %w",
			shape, nbThreads, nbThreads, maxRows, ErrInsufficientMemory)
	}

	h, nchan := shape.Height, shape.Channels
	perChan := make([]int, nchan)

	if int64(h)*int64(nbThreads) <= maxRows {
		// Memory abundant. Whole channels fit under the budget even
		// with every worker holding one.
		if nbThreads <= nchan {
			for ch := range perChan {
				perChan[ch] = 1
			}
		} else {
			// One block per worker; channels can't split perfectly
			// evenly, so the leading channels take the extras.
			base, extra := nbThreads/nchan, nbThreads%nchan
			for ch := range perChan {
				n := base
				if ch < extra {
					n++
				}
				if n > h {
					n = h // blocks are never empty
				}
				perChan[ch] = n
			}
		}
	} else {
		// Memory constrained. The budget has to cover nbThreads
		// concurrently resident blocks, so no block may exceed r rows.
		r := int(maxRows / int64(nbThreads)) // >= 1 by the feasibility check
		n := (h + r - 1) / r

		// A queue barely longer than the worker count stalls the tail
		// of the run, so cut finer until the block count strictly
		// exceeds it. Granularity bottoms out at one-row blocks.
		for nchan*n <= nbThreads && n < h {
			n++
		}
		for ch := range perChan {
			perChan[ch] = n
		}
	}

	blocks := make([]Block, 0, sum(perChan))
	largest := 0
	for ch := 0; ch < nchan; ch++ {
		n := perChan[ch]
		size, rem := h/n, h%n
		row := 0
		for i := 0; i < n; i++ {
			rows := size
			if i < rem {
				rows++
			}
			blocks = append(blocks, Block{Channel: ch, StartRow: row, EndRow: row + rows - 1})
			if rows > largest {
				largest = rows
			}
			row += rows
		}
	}

	return &BlockPlan{
		Shape:            shape,
		MaxRows:          maxRows,
		NbThreads:        nbThreads,
		Blocks:           blocks,
		LargestBlockRows: largest,
		NbBlocks:         len(blocks),
	}, nil
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}
