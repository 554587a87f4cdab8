package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/imamik/opspipe/internal/util/retry"
)

// Options configures a Runner.
type Options struct {
	// Task names the operator action (migrate, drop-legacy, inspect, deploy).
	Task string
	// Observer receives progress events. Defaults to DiscardObserver.
	Observer Observer
	// Logger receives debug logs. Defaults to logr.Discard().
	Logger logr.Logger
	// Metrics is optional.
	Metrics *Metrics
	// ConnectRetries is the number of retries after a failed Open.
	ConnectRetries int
	// ConnectRetryDelay is the initial backoff delay between Open attempts.
	ConnectRetryDelay time.Duration
	// StepTimeout bounds steps that do not implement Timeouter. Zero means none.
	StepTimeout time.Duration
	// RunID identifies the run in events. Generated when empty.
	RunID string
}

// StepError reports which step failed. Index is -1 when the run failed
// before any step started.
type StepError struct {
	Index int
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index+1, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Runner executes steps against one target with guaranteed cleanup.
// A Runner is single-use.
type Runner[H Handle] struct {
	connector Connector[H]
	steps     []Step[H]
	opts      Options

	state       State
	transitions []State
	obs         Observer
	log         logr.Logger
}

// NewRunner creates a runner for the given connector and ordered steps.
func NewRunner[H Handle](connector Connector[H], steps []Step[H], opts Options) *Runner[H] {
	if opts.Observer == nil {
		opts.Observer = DiscardObserver{}
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.ConnectRetryDelay == 0 {
		opts.ConnectRetryDelay = time.Second
	}
	return &Runner[H]{
		connector: connector,
		steps:     steps,
		opts:      opts,
		state:     State{Phase: PhaseNotStarted},
	}
}

// State returns the current state of the run.
func (r *Runner[H]) State() State {
	return r.state
}

// Run executes the pipeline. The returned error equals Outcome.Err.
func (r *Runner[H]) Run(ctx context.Context) (outcome *Outcome, err error) {
	r.obs = r.opts.Observer.WithFields(map[string]string{"run": r.opts.RunID})
	r.log = r.opts.Logger.WithValues("task", r.opts.Task, "run", r.opts.RunID)

	outcome = &Outcome{
		RunID:         r.opts.RunID,
		Task:          r.opts.Task,
		Status:        StatusSuccess,
		FailedStep:    -1,
		LastCompleted: -1,
	}

	r.obs.Event(Event{
		Type:    EventRunStarted,
		Task:    r.opts.Task,
		Message: fmt.Sprintf("%d step(s) against %s", len(r.steps), r.connector.Describe()),
	})
	r.transition(State{Phase: PhaseConnecting})

	handle, err := r.connect(ctx)
	if err != nil {
		r.fail(outcome, -1, "connect", err)
		r.transition(State{Phase: PhaseClosed})
		outcome.Transitions = r.transitions
		r.finish(outcome)
		return outcome, outcome.Err
	}

	defer func() {
		r.release(handle)
		outcome.Transitions = r.transitions
		r.finish(outcome)
	}()

	if len(r.steps) == 0 {
		r.transition(State{Phase: PhaseSucceeded})
		return outcome, nil
	}

	r.transition(State{Phase: PhaseRunning, Step: 0})
	for i, step := range r.steps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.fail(outcome, i, step.Name(), NewError(KindCanceled, step.Name(), ctxErr))
			return outcome, outcome.Err
		}
		if i > 0 {
			r.transition(State{Phase: PhaseRunning, Step: i})
		}

		result, stepErr := r.runStep(ctx, i, step, handle)
		if stepErr != nil {
			r.fail(outcome, i, step.Name(), stepErr)
			return outcome, outcome.Err
		}
		outcome.Results = append(outcome.Results, result)
		outcome.LastCompleted = i
	}

	r.transition(State{Phase: PhaseSucceeded})
	return outcome, nil
}

func (r *Runner[H]) connect(ctx context.Context) (H, error) {
	var handle H
	endpoint := r.connector.Describe()

	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
		r.log.V(1).Info("opening connection", "endpoint", endpoint, "attempt", attempt)
		h, err := r.connector.Open(ctx)
		r.opts.Metrics.recordConnect(r.opts.Task, err)
		if err != nil {
			return err
		}
		handle = h
		return nil
	},
		retry.WithMaxRetries(r.opts.ConnectRetries),
		retry.WithInitialDelay(r.opts.ConnectRetryDelay),
		retry.WithMaxDelay(30*time.Second),
		retry.WithOnRetry(func(attempt int, err error, wait time.Duration) {
			r.obs.Event(Event{
				Type:    EventConnectRetry,
				Task:    r.opts.Task,
				Message: fmt.Sprintf("connect attempt %d to %s failed (%v), retrying in %v", attempt, endpoint, err, wait),
			})
		}),
	)
	if err != nil {
		var zero H
		if ctxErr := ctx.Err(); ctxErr != nil {
			if !errors.Is(err, ctxErr) {
				err = fmt.Errorf("%w: %w", ctxErr, err)
			}
			return zero, NewError(KindCanceled, endpoint, err)
		}
		if !IsKind(err, KindConnection) {
			err = ConnectionError(endpoint, err)
		}
		return zero, err
	}
	return handle, nil
}

func (r *Runner[H]) runStep(ctx context.Context, i int, step Step[H], handle H) (*StepResult, error) {
	name := step.Name()
	total := len(r.steps)
	r.obs.Event(Event{Type: EventStepStarted, Task: r.opts.Task, Step: name, Index: i, Total: total})

	timeout := r.opts.StepTimeout
	if t, ok := step.(Timeouter); ok && t.Timeout() > 0 {
		timeout = t.Timeout()
	}
	stepCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := step.Run(stepCtx, handle, &stepRecorder{obs: r.obs, task: r.opts.Task, step: name})
	duration := time.Since(start)
	r.opts.Metrics.recordStep(r.opts.Task, name, duration, err)
	r.log.V(1).Info("step finished", "step", name, "index", i, "duration", duration, "error", err)

	if err != nil {
		var pe *Error
		if errors.As(err, &pe) && pe.Output != "" {
			r.obs.Event(Event{Type: EventStepOutput, Task: r.opts.Task, Step: name, Message: pe.Output})
		}
		r.obs.Event(Event{Type: EventStepFailed, Task: r.opts.Task, Step: name, Index: i, Total: total, Message: err.Error()})
		return nil, err
	}

	if result == nil {
		result = &StepResult{}
	}
	result.Step = name
	result.Duration = duration
	if result.Output != "" {
		r.obs.Event(Event{Type: EventStepOutput, Task: r.opts.Task, Step: name, Message: result.Output})
	}
	r.obs.Event(Event{
		Type:    EventStepCompleted,
		Task:    r.opts.Task,
		Step:    name,
		Index:   i,
		Total:   total,
		Message: fmt.Sprintf("in %v", duration.Round(time.Millisecond)),
	})
	return result, nil
}

// fail records a terminal failure at index i (-1 before any step).
func (r *Runner[H]) fail(outcome *Outcome, i int, name string, err error) {
	r.transition(State{Phase: PhaseFailed, Step: i})
	outcome.Status = StatusPartialFailure
	outcome.FailedStep = i
	outcome.Err = &StepError{Index: i, Step: name, Err: err}
}

// release closes the handle exactly once. Close errors are reported, never returned.
func (r *Runner[H]) release(handle H) {
	if err := handle.Close(); err != nil {
		r.obs.Event(Event{Type: EventStepNote, Task: r.opts.Task, Message: fmt.Sprintf("closing connection: %v", err)})
		r.log.Error(err, "closing connection")
	}
	r.obs.Event(Event{Type: EventHandleClosed, Task: r.opts.Task, Message: "connection closed"})
	r.transition(State{Phase: PhaseClosed})
}

func (r *Runner[H]) finish(outcome *Outcome) {
	r.opts.Metrics.recordRun(r.opts.Task, outcome.Status)
	if outcome.Succeeded() {
		r.obs.Event(Event{
			Type:    EventRunCompleted,
			Task:    r.opts.Task,
			Message: fmt.Sprintf("%d step(s) succeeded", len(outcome.Results)),
		})
		return
	}
	r.obs.Event(Event{Type: EventRunFailed, Task: r.opts.Task, Message: outcome.Err.Error()})
}

func (r *Runner[H]) transition(to State) {
	if !validTransition(r.state, to) {
		r.log.Error(nil, "invalid state transition", "from", r.state.String(), "to", to.String())
	}
	r.log.V(1).Info("state changed", "from", r.state.String(), "to", to.String())
	r.state = to
	r.transitions = append(r.transitions, to)
}

type stepRecorder struct {
	obs  Observer
	task string
	step string
}

func (s *stepRecorder) Note(format string, args ...any) {
	s.obs.Event(Event{Type: EventStepNote, Task: s.task, Step: s.step, Message: fmt.Sprintf(format, args...)})
}
