package remote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/imamik/opspipe/internal/pipeline"
)

// TransferFile copies one local file to the host.
type TransferFile struct {
	LocalPath  string
	RemotePath string
	MaxRunFor  time.Duration
}

// Name implements pipeline.Step.
func (s TransferFile) Name() string {
	return "transfer " + filepath.Base(s.LocalPath)
}

// Timeout implements pipeline.Timeouter.
func (s TransferFile) Timeout() time.Duration { return s.MaxRunFor }

// Run implements pipeline.Step.
func (s TransferFile) Run(ctx context.Context, h Executor, r pipeline.Recorder) (*pipeline.StepResult, error) {
	op := s.Name()
	if s.RemotePath == "" {
		return nil, pipeline.TransferError(op, fmt.Errorf("remote path cannot be empty"))
	}

	f, err := os.Open(s.LocalPath)
	if err != nil {
		return nil, pipeline.TransferError(op, fmt.Errorf("cannot read local file: %w", err))
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, pipeline.TransferError(op, fmt.Errorf("cannot stat local file: %w", err))
	}
	if !info.Mode().IsRegular() {
		return nil, pipeline.TransferError(op, fmt.Errorf("%s is not a regular file", s.LocalPath))
	}

	size := info.Size()
	r.Note("uploading %d bytes to %s", size, s.RemotePath)
	n, err := h.Upload(ctx, f, size, s.RemotePath)
	if err != nil {
		return nil, pipeline.TransferError(op, err)
	}
	if n != size {
		return nil, pipeline.TransferError(op, fmt.Errorf("remote file has %d bytes, expected %d", n, size))
	}

	return &pipeline.StepResult{
		Output:  fmt.Sprintf("%d bytes written to %s", n, s.RemotePath),
		Details: n,
	}, nil
}
