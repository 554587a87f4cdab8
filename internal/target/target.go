package target

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Driver identifies the SQL engine behind a Database target.
type Driver string

const (
	// DriverPostgres connects through lib/pq.
	DriverPostgres Driver = "postgres"
	// DriverSQLite opens a local database file through modernc.org/sqlite.
	DriverSQLite Driver = "sqlite"
)

// TLSMode is the Postgres sslmode used for a Database target.
type TLSMode string

const (
	TLSRequire    TLSMode = "require"
	TLSVerifyCA   TLSMode = "verify-ca"
	TLSVerifyFull TLSMode = "verify-full"
)

// Encrypted reports whether the mode guarantees an encrypted transport.
func (m TLSMode) Encrypted() bool {
	switch m {
	case TLSRequire, TLSVerifyCA, TLSVerifyFull:
		return true
	default:
		return false
	}
}

// HostKeyPolicy controls how the SSH server's host key is verified.
type HostKeyPolicy string

const (
	// HostKeyKnownHosts checks the key against a known_hosts file.
	HostKeyKnownHosts HostKeyPolicy = "known_hosts"
	// HostKeyFingerprint pins a single SHA256 fingerprint.
	HostKeyFingerprint HostKeyPolicy = "fingerprint"
	// HostKeyInsecure accepts any host key. Must be chosen explicitly.
	HostKeyInsecure HostKeyPolicy = "insecure"
)

// Database describes a SQL database endpoint.
type Database struct {
	Driver   Driver
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	TLSMode  TLSMode
	// Schema is the default schema inspected for table listings (postgres only).
	Schema string
	// Path is the database file for DriverSQLite. ":memory:" is allowed.
	Path string
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration
}

// String returns a printable endpoint without credentials.
func (d Database) String() string {
	if d.Driver == DriverSQLite {
		return fmt.Sprintf("sqlite:%s", d.Path)
	}
	return fmt.Sprintf("postgres://%s@%s/%s", d.User, net.JoinHostPort(d.Host, strconv.Itoa(d.Port)), d.Name)
}

// HostKey holds the verification settings for a Host target.
type HostKey struct {
	Policy      HostKeyPolicy
	KnownHosts  string
	Fingerprint string
}

// Host describes a remote machine reached over SSH.
type Host struct {
	// Address is host or host:port. Port 22 is assumed when omitted.
	Address    string
	User       string
	Password   string
	PrivateKey []byte
	// WorkDir is the remote project directory commands run in.
	WorkDir        string
	HostKey        HostKey
	ConnectTimeout time.Duration
}

// Addr returns Address with the SSH port filled in.
func (h Host) Addr() string {
	if _, _, err := net.SplitHostPort(h.Address); err == nil {
		return h.Address
	}
	return net.JoinHostPort(h.Address, "22")
}

// String returns a printable endpoint without credentials.
func (h Host) String() string {
	if h.User == "" {
		return h.Addr()
	}
	return h.User + "@" + h.Addr()
}
