package sstack

import(
	"errors"
	"fmt"
	"time"

	"github.com/codahale/hdrhistogram"
	"github.com/skypies/util/histogram"
)

// A BlockFailure records one block that could not be stacked: which
// block, which stage broke, and how.
type BlockFailure struct {
	Idx   int
	Block Block
	Stage string
	Err   error
}

func (bf BlockFailure)String() string {
	return fmt.Sprintf("%s %s: %v", bf.Block, bf.Stage, bf.Err)
}

// A RunReport is the full account of one stacking run: totals, the
// failure manifest, and the per-block latency and rejection
// distributions. Not safe to read while the run is still in flight.
type RunReport struct {
	Planned       int
	Completed     int // blocks read, reduced and written
	Failed        []BlockFailure
	Skipped       int // drained undispatched after an abort
	TotalRejected int64
	WallTime      time.Duration
	Aborted       bool
	AbortCause    error

	Latencies  *hdrhistogram.Histogram // per-block wall time, microseconds
	Rejections histogram.Histogram     // per-block percentage of rejected samples

	width         int
	nframes       int
	unrecoverable error
}

func newRunReport(plan *BlockPlan, nframes int) *RunReport {
	return &RunReport{
		Planned:    plan.NbBlocks,
		Failed:     []BlockFailure{},
		Latencies:  hdrhistogram.New(1, int64(time.Hour/time.Microsecond), 3),
		Rejections: histogram.Histogram{NumBuckets: 20, ValMin: 0, ValMax: 100},
		width:      plan.Shape.Width,
		nframes:    nframes,
	}
}

func (r *RunReport)noteSuccess(job stackJob) {
	r.Completed++
	r.TotalRejected += job.Rejected
	_ = r.Latencies.RecordValue(job.Elapsed.Microseconds())

	total := int64(job.Block.Rows()) * int64(r.width) * int64(r.nframes)
	if total > 0 {
		r.Rejections.Add(histogram.ScalarVal(int(job.Rejected * 100 / total)))
	}
}

func (r *RunReport)noteFailure(job stackJob) {
	r.Failed = append(r.Failed, BlockFailure{Idx: job.Idx, Block: job.Block, Stage: job.Stage, Err: job.Err})
	if errors.Is(job.Err, ErrUnrecoverable) && r.unrecoverable == nil {
		r.unrecoverable = job.Err
	}
}

// Summary renders the report the way you'd want it in a log file.
func (r *RunReport)Summary() string {
	str := fmt.Sprintf("stacked %d/%d blocks in %s", r.Completed, r.Planned, r.WallTime.Round(time.Millisecond))
	if r.Aborted {
		str += fmt.Sprintf(" (ABORTED: %v)", r.AbortCause)
	}
	str += "\n"

	if r.Latencies.TotalCount() > 0 {
		str += fmt.Sprintf("  block latency: p50 %s  p90 %s  p99 %s  max %s\n",
			time.Duration(r.Latencies.ValueAtQuantile(50))*time.Microsecond,
			time.Duration(r.Latencies.ValueAtQuantile(90))*time.Microsecond,
			time.Duration(r.Latencies.ValueAtQuantile(99))*time.Microsecond,
			time.Duration(r.Latencies.Max())*time.Microsecond)
	}
	if r.TotalRejected > 0 {
		str += fmt.Sprintf("  rejected %d samples, per-block %%: %v\n", r.TotalRejected, r.Rejections)
	}
	if r.Skipped > 0 {
		str += fmt.Sprintf("  %d blocks never dispatched\n", r.Skipped)
	}
	for _, f := range r.Failed {
		str += fmt.Sprintf("  FAILED %s\n", f)
	}
	return str
}
