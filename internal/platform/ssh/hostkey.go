package ssh

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/imamik/opspipe/internal/target"
)

// HostKeyError reports a host key rejected by a pinned fingerprint.
type HostKeyError struct {
	Host string
	Want string
	Got  string
}

func (e *HostKeyError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: want %s, got %s", e.Host, e.Want, e.Got)
}

// HostKeyCallback builds the verification callback for a policy.
// An empty policy is treated as known_hosts.
func HostKeyCallback(hk target.HostKey) (ssh.HostKeyCallback, error) {
	switch hk.Policy {
	case target.HostKeyKnownHosts, "":
		path, err := expandHome(hk.KnownHosts)
		if err != nil {
			return nil, err
		}
		cb, err := knownhosts.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts %s: %w", path, err)
		}
		return cb, nil

	case target.HostKeyFingerprint:
		want := strings.TrimSpace(hk.Fingerprint)
		if !strings.HasPrefix(want, "SHA256:") {
			return nil, fmt.Errorf("host key fingerprint must be a SHA256 fingerprint, got %q", hk.Fingerprint)
		}
		return func(hostname string, _ net.Addr, key ssh.PublicKey) error {
			got := ssh.FingerprintSHA256(key)
			if got != want {
				return &HostKeyError{Host: hostname, Want: want, Got: got}
			}
			return nil
		}, nil

	case target.HostKeyInsecure:
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // explicit opt-in only

	default:
		return nil, fmt.Errorf("unknown host key policy %q", hk.Policy)
	}
}

func expandHome(path string) (string, error) {
	if path == "" {
		path = "~/.ssh/known_hosts"
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("cannot resolve home directory for known_hosts")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
