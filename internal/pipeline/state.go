package pipeline

import "fmt"

// Phase is the coarse state of a run.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseConnecting
	PhaseRunning
	PhaseSucceeded
	PhaseFailed
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "NotStarted"
	case PhaseConnecting:
		return "Connecting"
	case PhaseRunning:
		return "Running"
	case PhaseSucceeded:
		return "Succeeded"
	case PhaseFailed:
		return "Failed"
	case PhaseClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is a point in the run state machine. Step is meaningful for
// Running and Failed; it is -1 for a failure before any step started.
type State struct {
	Phase Phase
	Step  int
}

func (s State) String() string {
	switch s.Phase {
	case PhaseRunning:
		return fmt.Sprintf("Running(%d)", s.Step)
	case PhaseFailed:
		return fmt.Sprintf("Failed(%d)", s.Step)
	default:
		return s.Phase.String()
	}
}

// validTransition encodes the allowed edges of the state machine.
func validTransition(from, to State) bool {
	switch from.Phase {
	case PhaseNotStarted:
		return to.Phase == PhaseConnecting
	case PhaseConnecting:
		return (to.Phase == PhaseRunning && to.Step == 0) ||
			to.Phase == PhaseFailed ||
			to.Phase == PhaseSucceeded
	case PhaseRunning:
		// Failed(i+1) is a cancellation observed before step i+1 started.
		return (to.Phase == PhaseRunning && to.Step == from.Step+1) ||
			(to.Phase == PhaseFailed && (to.Step == from.Step || to.Step == from.Step+1)) ||
			to.Phase == PhaseSucceeded
	case PhaseSucceeded, PhaseFailed:
		return to.Phase == PhaseClosed
	default:
		return false
	}
}

// Status is the final result of a run.
type Status string

const (
	StatusSuccess        Status = "Success"
	StatusPartialFailure Status = "PartialFailure"
)

// Outcome summarises a finished run.
type Outcome struct {
	RunID  string
	Task   string
	Status Status
	// FailedStep is the index of the failing step, or -1 when the run
	// failed before any step (connection) or succeeded.
	FailedStep int
	// LastCompleted is the index of the last successful step, or -1.
	LastCompleted int
	Err           error
	Results       []*StepResult
	// Transitions records every state the run passed through.
	Transitions []State
}

// Succeeded reports whether every step completed.
func (o *Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}
