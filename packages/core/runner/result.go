package runner

import (
	"time"

	"github.com/abdul-hamid-achik/hitrun/packages/core/parser"
	"github.com/abdul-hamid-achik/hitrun/packages/metrics"
)

// MaxExitCode caps the failure count used as an exit status so it never
// collides with signal exit codes.
const MaxExitCode = 125

// Result is the outcome of a run.
type Result struct {
	Files    []*parser.File
	Passed   int
	Failed   int
	Ignored  int
	Empty    int
	OnlyMode bool
	Aborted  bool
	Warnings []string
	Duration time.Duration
	Latency  metrics.Summary
}

// Blocks returns every block of the run in execution file order.
func (r *Result) Blocks() []*parser.Block {
	var blocks []*parser.Block
	for _, f := range r.Files {
		blocks = append(blocks, f.Blocks...)
	}
	return blocks
}

// FailedBlocks returns the failed blocks in file order.
func (r *Result) FailedBlocks() []*parser.Block {
	var failed []*parser.Block
	for _, b := range r.Blocks() {
		if b.State() == parser.StateFailed {
			failed = append(failed, b)
		}
	}
	return failed
}

// Ran is the number of blocks that sent a request or failed trying.
func (r *Result) Ran() int {
	return r.Passed + r.Failed
}

// ExitCode is 0 when at least one block ran and none failed, the number
// of failed blocks otherwise, and 1 when nothing ran. Only mode never
// exits 0 so a focused run cannot pass unnoticed.
func (r *Result) ExitCode() int {
	switch {
	case r.Failed > MaxExitCode:
		return MaxExitCode
	case r.Failed > 0:
		return r.Failed
	case r.Ran() == 0:
		return 1
	case r.OnlyMode:
		return 1
	default:
		return 0
	}
}

func (r *Result) count(state parser.State) {
	switch state {
	case parser.StatePassed:
		r.Passed++
	case parser.StateFailed:
		r.Failed++
	case parser.StateIgnored:
		r.Ignored++
	case parser.StateEmpty:
		r.Empty++
	}
}
