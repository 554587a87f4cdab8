// Package sshtest runs an in-process SSH server for tests.
//
// The server accepts password and public-key authentication and executes
// "exec" requests with the local /bin/sh, so commands such as cat, wc and mv
// behave as they would on a real host. Every executed command is recorded.
package sshtest

import (
	"bytes"
	"errors"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/imamik/opspipe/internal/util/keygen"
)

// Server is a minimal SSH server bound to 127.0.0.1.
type Server struct {
	Addr      string
	User      string
	Password  string
	HostKey   *keygen.KeyPair
	ClientKey *keygen.KeyPair

	// Hook, when set, may replace a command's exit status before it runs.
	// Returning handled=true skips execution.
	Hook func(command string) (status int, handled bool)

	listener net.Listener
	config   *ssh.ServerConfig
	live     atomic.Int32
	accepted atomic.Int32

	mu       sync.Mutex
	commands []string
	conns    []ssh.Conn
	wg       sync.WaitGroup
}

// Start launches a server and registers its shutdown with t.Cleanup.
func Start(t testing.TB) *Server {
	t.Helper()

	hostKey, err := keygen.GenerateEd25519KeyPair("sshtest-host")
	if err != nil {
		t.Fatalf("host key: %v", err)
	}
	clientKey, err := keygen.GenerateEd25519KeyPair("sshtest-client")
	if err != nil {
		t.Fatalf("client key: %v", err)
	}

	s := &Server{
		User:      "deploy",
		Password:  "correct horse",
		HostKey:   hostKey,
		ClientKey: clientKey,
	}
	s.config = &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == s.User && string(pass) == s.Password {
				return nil, nil
			}
			return nil, errors.New("password rejected")
		},
		PublicKeyCallback: func(c ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if c.User() == s.User && bytes.Equal(key.Marshal(), s.ClientKey.Signer.PublicKey().Marshal()) {
				return nil, nil
			}
			return nil, errors.New("key rejected")
		},
	}
	s.config.AddHostKey(hostKey.Signer)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s.listener = l
	s.Addr = l.Addr().String()

	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// KnownHostsFile writes a known_hosts file trusting this server and returns its path.
func (s *Server) KnownHostsFile(t testing.TB) string {
	t.Helper()
	line := knownhosts.Line([]string{knownhosts.Normalize(s.Addr)}, s.HostKey.Signer.PublicKey())
	path := filepath.Join(t.TempDir(), "known_hosts")
	if err := os.WriteFile(path, []byte(line+"\n"), 0o600); err != nil {
		t.Fatalf("write known_hosts: %v", err)
	}
	return path
}

// Commands returns the commands executed so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// LiveConnections returns the number of authenticated connections still open.
func (s *Server) LiveConnections() int {
	return int(s.live.Load())
}

// AcceptedConnections returns the number of connections that authenticated.
func (s *Server) AcceptedConnections() int {
	return int(s.accepted.Load())
}

// Close stops the server and drops all connections.
func (s *Server) Close() {
	_ = s.listener.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.handleConn(nc)
	}
}

func (s *Server) handleConn(nc net.Conn) {
	defer s.wg.Done()
	sconn, chans, reqs, err := ssh.NewServerConn(nc, s.config)
	if err != nil {
		_ = nc.Close()
		return
	}
	s.accepted.Add(1)
	s.live.Add(1)
	defer s.live.Add(-1)

	s.mu.Lock()
	s.conns = append(s.conns, sconn)
	s.mu.Unlock()

	go ssh.DiscardRequests(reqs)
	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "only session channels")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, chReqs)
	}
	_ = sconn.Wait()
}

func (s *Server) handleSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	var (
		mu  sync.Mutex
		cmd *exec.Cmd
	)
	for req := range reqs {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)

			s.mu.Lock()
			s.commands = append(s.commands, payload.Command)
			s.mu.Unlock()

			c := exec.Command("/bin/sh", "-c", payload.Command)
			c.Stdin = ch
			c.Stdout = ch
			c.Stderr = ch.Stderr()
			c.WaitDelay = time.Second
			mu.Lock()
			cmd = c
			mu.Unlock()

			go func() {
				status := s.run(payload.Command, c)
				_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
				_ = ch.Close()
			}()
		case "signal":
			mu.Lock()
			if cmd != nil && cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			mu.Unlock()
		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}

func (s *Server) run(command string, c *exec.Cmd) int {
	if s.Hook != nil {
		if status, handled := s.Hook(command); handled {
			return status
		}
	}
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		return 255
	}
	return 0
}
