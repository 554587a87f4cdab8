package testing

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockExecutor is a mock remote shell session. It satisfies remote.Executor.
type MockExecutor struct {
	mock.Mock
}

// Run records the command. When the expectation's third return value is a
// string, it is written to output before returning.
func (m *MockExecutor) Run(ctx context.Context, command string, output io.Writer) (int, error) {
	args := m.Called(ctx, command, output)
	if len(args) > 2 && output != nil {
		if s, ok := args.Get(2).(string); ok {
			_, _ = io.WriteString(output, s)
		}
	}
	return args.Int(0), args.Error(1)
}

// Upload drains src and returns the configured byte count and error.
func (m *MockExecutor) Upload(ctx context.Context, src io.Reader, size int64, remotePath string) (int64, error) {
	_, _ = io.Copy(io.Discard, src)
	args := m.Called(ctx, size, remotePath)
	return args.Get(0).(int64), args.Error(1)
}

// Close records the call.
func (m *MockExecutor) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRecorder collects step notes.
type MockRecorder struct {
	Notes []string
}

// Note implements pipeline.Recorder.
func (r *MockRecorder) Note(format string, args ...any) {
	r.Notes = append(r.Notes, sprintf(format, args...))
}
