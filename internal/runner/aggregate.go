package runner

import (
	"context"

	"github.com/adt-dev/adt/internal/apperr"
)

// Policy decides what happens after a failing invocation.
type Policy int

const (
	// ContinueOnFailure runs every invocation so all findings are reported.
	ContinueOnFailure Policy = iota
	// StopOnFailure stops at the first failing invocation.
	StopOnFailure
)

// Aggregate is the ordered outcome of a composite command.
type Aggregate struct {
	Results []*Result
	// Failed names the phase that stopped a StopOnFailure sequence.
	Failed string
}

// Add appends a result.
func (a *Aggregate) Add(r *Result) {
	a.Results = append(a.Results, r)
}

// Merge appends every result of b.
func (a *Aggregate) Merge(b *Aggregate) {
	if b == nil {
		return
	}
	a.Results = append(a.Results, b.Results...)
}

// Success is true when every member succeeded. An empty aggregate succeeds.
func (a *Aggregate) Success() bool {
	return a.FirstFailure() == nil
}

// FirstFailure returns the first failing result, or nil.
func (a *Aggregate) FirstFailure() *Result {
	for _, r := range a.Results {
		if !r.Success() {
			return r
		}
	}
	return nil
}

// ExitCode is the first non-zero exit code, or 0. Failures without a usable
// code (killed by a signal) map to the generic failure code.
func (a *Aggregate) ExitCode() int {
	r := a.FirstFailure()
	if r == nil {
		return apperr.ExitSuccess
	}
	if r.ExitCode > 0 {
		return r.ExitCode
	}
	return apperr.ExitFailure
}

// RunAll executes invs in order. Environment errors and cancellation abort
// the sequence immediately; tool failures abort it only under StopOnFailure.
func RunAll(ctx context.Context, r Runner, invs []Invocation, policy Policy) (*Aggregate, error) {
	agg := &Aggregate{}
	for _, inv := range invs {
		if err := ctx.Err(); err != nil {
			return agg, err
		}
		res, err := r.Run(ctx, inv)
		if res != nil {
			agg.Add(res)
		}
		if err != nil {
			return agg, err
		}
		if !res.Success() && policy == StopOnFailure {
			agg.Failed = inv.Tool
			return agg, nil
		}
	}
	return agg, nil
}
