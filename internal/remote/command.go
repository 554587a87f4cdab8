package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/opspipe/internal/pipeline"
	"github.com/imamik/opspipe/internal/platform/ssh"
	"github.com/imamik/opspipe/internal/util/tail"
)

// DefaultTailLines is how much command output is kept when not configured.
const DefaultTailLines = 30

// RunCommand runs a shell command on the host. A non-zero exit status fails
// the step with the retained output attached.
type RunCommand struct {
	Label     string
	Command   string
	WorkDir   string
	TailLines int
	MaxRunFor time.Duration
}

// Name implements pipeline.Step.
func (s RunCommand) Name() string {
	if s.Label == "" {
		return "run command"
	}
	return s.Label
}

// Timeout implements pipeline.Timeouter.
func (s RunCommand) Timeout() time.Duration { return s.MaxRunFor }

// Run implements pipeline.Step.
func (s RunCommand) Run(ctx context.Context, h Executor, _ pipeline.Recorder) (*pipeline.StepResult, error) {
	op := s.Name()
	out, code, err := runTailed(ctx, h, s.WorkDir, s.Command, s.TailLines)
	if err != nil {
		return nil, pipeline.CommandError(op, err, out)
	}
	if code != 0 {
		return nil, pipeline.CommandError(op, fmt.Errorf("exited with status %d", code), out)
	}
	return &pipeline.StepResult{Output: out, Details: code}, nil
}

// runTailed runs command inside workDir and returns the retained output.
func runTailed(ctx context.Context, h Executor, workDir, command string, lines int) (string, int, error) {
	if lines <= 0 {
		lines = DefaultTailLines
	}
	buf := tail.New(lines)
	code, err := h.Run(ctx, inDir(workDir, command), buf)
	return buf.String(), code, err
}

func inDir(dir, command string) string {
	if dir == "" {
		return command
	}
	return "cd " + ssh.ShellQuote(dir) + " && " + command
}
