package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/imamik/opspipe/internal/target"
	"github.com/imamik/opspipe/internal/util/retry"
)

const defaultDialTimeout = 10 * time.Second

// Session is one live SSH connection to a host target.
type Session struct {
	client *ssh.Client
	host   target.Host

	closeOnce sync.Once
	closeErr  error
}

// Open dials and authenticates against h. It does not retry. Authentication
// and host-key failures are marked fatal so a retrying caller stops.
func Open(ctx context.Context, h target.Host) (*Session, error) {
	cfg, err := clientConfig(h)
	if err != nil {
		return nil, retry.Fatal(err)
	}

	addr := h.Addr()
	dialer := net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	// Bound the handshake; x/crypto/ssh has no context support here.
	_ = conn.SetDeadline(time.Now().Add(cfg.Timeout))
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		err = fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
		if isPermanent(err) {
			return nil, retry.Fatal(err)
		}
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	return &Session{client: ssh.NewClient(c, chans, reqs), host: h}, nil
}

func clientConfig(h target.Host) (*ssh.ClientConfig, error) {
	if h.Address == "" {
		return nil, errors.New("host address cannot be empty")
	}
	if h.User == "" {
		return nil, errors.New("host user cannot be empty")
	}

	var auth []ssh.AuthMethod
	if len(h.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(h.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if h.Password != "" {
		password := h.Password
		auth = append(auth,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}
	if len(auth) == 0 {
		return nil, errors.New("no SSH credentials: set a private key or a password")
	}

	callback, err := HostKeyCallback(h.HostKey)
	if err != nil {
		return nil, err
	}

	timeout := h.ConnectTimeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}

	return &ssh.ClientConfig{
		User:            h.User,
		Auth:            auth,
		HostKeyCallback: callback,
		Timeout:         timeout,
	}, nil
}

// isPermanent reports handshake failures that retrying cannot fix.
func isPermanent(err error) bool {
	var keyErr *HostKeyError
	if errors.As(err, &keyErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "knownhosts:") ||
		strings.Contains(msg, "host key mismatch")
}

// Host returns the target this session is connected to.
func (s *Session) Host() target.Host {
	return s.host
}

// Close closes the connection. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		err := s.client.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			s.closeErr = err
		}
	})
	return s.closeErr
}
