package sstack

import(
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// A FrameRowReader hands the executor pixel data one block at a time.
// Implementations own the decode and IO, and must tolerate concurrent
// calls from multiple workers.
type FrameRowReader interface {
	NumFrames() int

	// ReadRows fills dst with rows [startRow,endRow] of one channel of
	// one frame: width*(endRow-startRow+1) samples, row-major.
	ReadRows(frame, channel, startRow, endRow int, dst []float64) error
}

// An OutputRowWriter persists one block's stacked rows. The executor
// writes each block exactly once, only after the whole block reduced
// cleanly, and block row ranges never overlap, so implementations only
// ever see disjoint concurrent writes.
type OutputRowWriter interface {
	WriteRows(channel, startRow, endRow int, data []float64) error
}

// A ProgressFunc observes block completions. done counts blocks that
// finished processing, successfully or not, out of total planned. The
// executor serializes calls, and done only ever grows.
type ProgressFunc func(done, total int)

// ErrUnrecoverable marks a collaborator failure that dooms the whole
// run. A reader or writer returning an error that wraps this aborts
// the run, instead of just failing its block.
var ErrUnrecoverable = errors.New("unrecoverable stacking failure")

type stackJob struct {
	// Inputs for the job
	Idx   int
	Block Block

	// Outputs
	Err      error
	Stage    string
	Rejected int64
	Elapsed  time.Duration
	Skipped  bool
}

// Run executes a block plan over a fixed pool of nbThreads workers.
// Blocks are dispatched FIFO in canonical plan order; each worker
// reads its block's rows from every frame, reduces pixel by pixel,
// writes the result once, and drops its buffers before taking the
// next block. At most nbThreads blocks are ever resident, which is
// exactly what the plan's row budget was sized against.
//
// A block whose read or write fails is recorded in the report and the
// run carries on; there are no retries. An error wrapping
// ErrUnrecoverable, or ctx being cancelled, drains the queue without
// dispatching further blocks, lets in-flight blocks finish, and makes
// Run return an error alongside the partial report. Rows already
// written stay valid.
//
// Pass nbThreads <= 0 to use the plan's own thread count. More
// threads than the plan was built for would void its row budget, so
// that is rejected.
func Run(ctx context.Context, plan *BlockPlan, src FrameRowReader, reducer PixelReducer, sink OutputRowWriter, nbThreads int, progress ProgressFunc) (*RunReport, error) {
	if plan == nil || plan.NbBlocks == 0 {
		return nil, fmt.Errorf("run: empty plan")
	}
	if src == nil || reducer == nil || sink == nil {
		return nil, fmt.Errorf("run: nil collaborator")
	}
	if nbThreads <= 0 {
		nbThreads = plan.NbThreads
	}
	if nbThreads > plan.NbThreads {
		return nil, fmt.Errorf("run: %d threads would void the plan's %d-thread row budget",
			nbThreads, plan.NbThreads)
	}
	nframes := src.NumFrames()
	if nframes < 1 {
		return nil, fmt.Errorf("run: frame source is empty")
	}

	report := newRunReport(plan, nframes)
	started := time.Now()

	var wg sync.WaitGroup
	var aborted atomic.Bool
	jobsChan    := make(chan stackJob, plan.NbBlocks)
	resultsChan := make(chan stackJob, plan.NbBlocks)

	// Kick off worker pool
	width := plan.Shape.Width
	for i:=0; i<nbThreads; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			for job := range jobsChan {
				if aborted.Load() || ctx.Err() != nil {
					job.Skipped = true
					resultsChan<- job
					continue
				}

				t0 := time.Now()
				job.Rejected, job.Stage, job.Err = stackBlock(src, reducer, sink, width, nframes, job.Block)
				job.Elapsed = time.Since(t0)

				if job.Err != nil && errors.Is(job.Err, ErrUnrecoverable) {
					aborted.Store(true)
				}
				resultsChan<- job
			}
		}()
	}

	// Results processor - serializes report updates and progress calls
	collectorDone := make(chan struct{})
	go func() {
		done := 0
		for res := range resultsChan {
			if res.Skipped {
				report.Skipped++
				continue
			}
			done++
			if res.Err != nil {
				report.noteFailure(res)
			} else {
				report.noteSuccess(res)
			}
			if progress != nil {
				progress(done, plan.NbBlocks)
			}
		}
		close(collectorDone)
	}()

	// Feed in jobs
	for i, b := range plan.Blocks {
		jobsChan<- stackJob{Idx: i, Block: b}
	}

	close(jobsChan)
	wg.Wait()
	close(resultsChan)
	<-collectorDone

	report.WallTime = time.Since(started)

	if err := ctx.Err(); err != nil {
		report.Aborted = true
		report.AbortCause = err
		return report, fmt.Errorf("stack run aborted: %w", err)
	}
	if report.unrecoverable != nil {
		report.Aborted = true
		report.AbortCause = report.unrecoverable
		return report, fmt.Errorf("stack run aborted: %w", report.unrecoverable)
	}
	return report, nil
}

// stackBlock does the work for one block: read the row range from
// every frame, reduce each pixel position across frames, write the
// block once. Buffers are scoped here so they die with the block.
func stackBlock(src FrameRowReader, reducer PixelReducer, sink OutputRowWriter, width, nframes int, b Block) (rejected int64, stage string, err error) {
	n := b.Rows() * width

	frames := make([][]float64, nframes)
	for f:=0; f<nframes; f++ {
		frames[f] = make([]float64, n)
		if err := src.ReadRows(f, b.Channel, b.StartRow, b.EndRow, frames[f]); err != nil {
			return 0, "read", fmt.Errorf("%s frame %d: %w", b, f, err)
		}
	}

	out := make([]float64, n)
	samples := make([]float64, nframes)
	for i:=0; i<n; i++ {
		for f:=0; f<nframes; f++ {
			samples[f] = frames[f][i] // refilled every pixel, reducers may reorder it
		}
		v, rej := reducer.Reduce(samples)
		out[i] = v
		rejected += int64(rej)
	}

	if err := sink.WriteRows(b.Channel, b.StartRow, b.EndRow, out); err != nil {
		return rejected, "write", fmt.Errorf("%s: %w", b, err)
	}
	return rejected, "", nil
}
