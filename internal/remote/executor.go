package remote

import (
	"context"
	"io"

	"github.com/imamik/opspipe/internal/pipeline"
	"github.com/imamik/opspipe/internal/platform/ssh"
	"github.com/imamik/opspipe/internal/target"
)

// Executor is a live shell session on a host target.
type Executor interface {
	pipeline.Handle
	// Run executes command, streaming combined output to output, and returns
	// its exit status. err reports only failures to run the command at all.
	Run(ctx context.Context, command string, output io.Writer) (int, error)
	// Upload writes size bytes from src to remotePath and returns the byte
	// count found on the remote side.
	Upload(ctx context.Context, src io.Reader, size int64, remotePath string) (int64, error)
}

var _ Executor = (*ssh.Session)(nil)

// Connector opens SSH sessions for one host target.
type Connector struct {
	Target target.Host
}

// Open implements pipeline.Connector.
func (c Connector) Open(ctx context.Context) (Executor, error) {
	s, err := ssh.Open(ctx, c.Target)
	if err != nil {
		// Never hand back a typed nil inside the interface.
		return nil, err
	}
	return s, nil
}

// Describe implements pipeline.Connector.
func (c Connector) Describe() string {
	return c.Target.String()
}
