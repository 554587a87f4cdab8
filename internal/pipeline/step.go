package pipeline

import (
	"context"
	"io"
	"time"
)

// Handle is a live session to a target. Close must be idempotent.
type Handle interface {
	io.Closer
}

// Connector opens the single Handle used by a run.
type Connector[H Handle] interface {
	// Open establishes the session. It does not retry.
	Open(ctx context.Context) (H, error)
	// Describe returns a printable endpoint without credentials.
	Describe() string
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc[H Handle] struct {
	Endpoint string
	OpenFunc func(ctx context.Context) (H, error)
}

// Open implements Connector.
func (f ConnectorFunc[H]) Open(ctx context.Context) (H, error) { return f.OpenFunc(ctx) }

// Describe implements Connector.
func (f ConnectorFunc[H]) Describe() string { return f.Endpoint }

// Step is one unit of work against a Handle. Steps hold intent only;
// all connection state comes from the handle passed to Run.
type Step[H Handle] interface {
	// Name returns the human-readable name of this step.
	Name() string
	// Run executes the step. A non-nil error fails the run.
	Run(ctx context.Context, h H, r Recorder) (*StepResult, error)
}

// Timeouter is implemented by steps that bound their own execution time.
type Timeouter interface {
	Timeout() time.Duration
}

// Recorder lets a running step emit notes (fallbacks, per-table progress)
// without owning an Observer.
type Recorder interface {
	Note(format string, args ...any)
}

// StepResult is the successful outcome of a step.
type StepResult struct {
	Step string
	// Output is captured stdout/stderr or a textual rendering of rows.
	Output string
	// RowsAffected is set by statement-executing steps.
	RowsAffected int64
	// Details carries step-specific structured data (e.g. an inspection report).
	Details  any
	Duration time.Duration
}

// StepFunc adapts a function to Step.
type StepFunc[H Handle] struct {
	StepName string
	Fn       func(ctx context.Context, h H, r Recorder) (*StepResult, error)
}

// Name implements Step.
func (s StepFunc[H]) Name() string { return s.StepName }

// Run implements Step.
func (s StepFunc[H]) Run(ctx context.Context, h H, r Recorder) (*StepResult, error) {
	return s.Fn(ctx, h, r)
}
