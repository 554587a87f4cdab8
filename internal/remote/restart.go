package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/opspipe/internal/pipeline"
)

// RestartService restarts a process-supervisor entry by name. When that
// fails, StartCommand is run once to register the entry from scratch. Only
// the failure of both is a step failure.
type RestartService struct {
	Service        string
	RestartCommand string
	StartCommand   string
	WorkDir        string
	TailLines      int
	MaxRunFor      time.Duration
}

// Name implements pipeline.Step.
func (s RestartService) Name() string {
	if s.Service == "" {
		return "restart service"
	}
	return "restart " + s.Service
}

// Timeout implements pipeline.Timeouter.
func (s RestartService) Timeout() time.Duration { return s.MaxRunFor }

// Run implements pipeline.Step.
func (s RestartService) Run(ctx context.Context, h Executor, r pipeline.Recorder) (*pipeline.StepResult, error) {
	op := s.Name()

	out, code, err := runTailed(ctx, h, s.WorkDir, s.RestartCommand, s.TailLines)
	if err == nil && code == 0 {
		return &pipeline.StepResult{Output: out, Details: "restarted"}, nil
	}
	restartErr := err
	if restartErr == nil {
		restartErr = fmt.Errorf("exited with status %d", code)
	}
	if ctx.Err() != nil || s.StartCommand == "" {
		return nil, pipeline.CommandError(op, restartErr, out)
	}

	r.Note("restart failed (%v), falling back to start command", restartErr)
	startOut, code, err := runTailed(ctx, h, s.WorkDir, s.StartCommand, s.TailLines)
	if err == nil && code == 0 {
		return &pipeline.StepResult{Output: startOut, Details: "started"}, nil
	}
	startErr := err
	if startErr == nil {
		startErr = fmt.Errorf("exited with status %d", code)
	}
	return nil, pipeline.CommandError(op, errors.Join(
		fmt.Errorf("restart: %w", restartErr),
		fmt.Errorf("start: %w", startErr),
	), startOut)
}
