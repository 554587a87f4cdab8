package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// killGrace bounds how long an interrupted command may take to report back.
const killGrace = 2 * time.Second

// Run executes command in a new channel, streaming combined stdout and
// stderr to output. It returns the remote exit status; err is set only when
// the command could not run to completion (transport failure, cancellation,
// missing exit status).
func (s *Session) Run(ctx context.Context, command string, output io.Writer) (int, error) {
	return s.run(ctx, command, nil, output)
}

func (s *Session) run(ctx context.Context, command string, stdin io.Reader, output io.Writer) (int, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return -1, fmt.Errorf("failed to create SSH session on %s: %w", s.host.Addr(), err)
	}
	defer func() { _ = session.Close() }()

	if output == nil {
		output = io.Discard
	}
	// stdout and stderr are copied by separate goroutines.
	w := &lockedWriter{w: output}
	session.Stdout = w
	session.Stderr = w
	if stdin != nil {
		session.Stdin = stdin
	}

	if err := session.Start(command); err != nil {
		return -1, fmt.Errorf("failed to start command on %s: %w", s.host.Addr(), err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		select {
		case <-done:
		case <-time.After(killGrace):
		}
		return -1, fmt.Errorf("command interrupted on %s: %w", s.host.Addr(), ctx.Err())
	case err := <-done:
		return exitStatus(err)
	}
}

func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		return -1, fmt.Errorf("remote command exited without status: %w", err)
	}
	return -1, err
}

// ShellQuote quotes s for a POSIX shell.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
