package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imamik/opspipe/internal/target"
)

// DatabaseTarget resolves the database section into a target. The password
// is read from the environment variable named by password_env.
func (c *Config) DatabaseTarget(t *Timeouts) (target.Database, error) {
	db := c.Database
	out := target.Database{
		Driver:  target.Driver(db.Driver),
		Host:    db.Host,
		Port:    db.Port,
		Name:    db.Name,
		User:    db.User,
		TLSMode: target.TLSMode(db.TLSMode),
		Schema:  db.Schema,
		Path:    db.Path,
	}
	if t != nil {
		out.ConnectTimeout = t.Connect
	}

	switch out.Driver {
	case target.DriverSQLite:
		if db.Path == "" {
			return target.Database{}, errors.New("database: path is required for sqlite")
		}
		return out, nil
	case target.DriverPostgres:
		var missing []string
		if db.Host == "" {
			missing = append(missing, "host")
		}
		if db.Name == "" {
			missing = append(missing, "name")
		}
		if db.User == "" {
			missing = append(missing, "user")
		}
		if len(missing) > 0 {
			return target.Database{}, fmt.Errorf("database: %s required", strings.Join(missing, ", "))
		}
	default:
		return target.Database{}, fmt.Errorf("database: unsupported driver %q", db.Driver)
	}

	if db.PasswordEnv != "" {
		pw, err := secretFromEnv(db.PasswordEnv)
		if err != nil {
			return target.Database{}, fmt.Errorf("database: %w", err)
		}
		out.Password = pw
	}
	return out, nil
}

// HostTarget resolves the host section into a target. Credentials come from
// the environment or from a private key file.
func (c *Config) HostTarget(t *Timeouts) (target.Host, error) {
	h := c.Host
	if h.Address == "" || h.User == "" {
		return target.Host{}, errors.New("host: address and user are required")
	}

	out := target.Host{
		Address: h.Address,
		User:    h.User,
		WorkDir: h.WorkDir,
		HostKey: target.HostKey{
			Policy:      target.HostKeyPolicy(h.HostKey.Policy),
			KnownHosts:  h.HostKey.KnownHosts,
			Fingerprint: h.HostKey.Fingerprint,
		},
	}
	if t != nil {
		out.ConnectTimeout = t.Connect
	}

	switch {
	case h.PrivateKeyEnv != "":
		key, err := secretFromEnv(h.PrivateKeyEnv)
		if err != nil {
			return target.Host{}, fmt.Errorf("host: %w", err)
		}
		out.PrivateKey = []byte(key)
	case h.PrivateKeyPath != "":
		path, err := expandHome(h.PrivateKeyPath)
		if err != nil {
			return target.Host{}, fmt.Errorf("host: %w", err)
		}
		key, err := os.ReadFile(path)
		if err != nil {
			return target.Host{}, fmt.Errorf("host: failed to read private key: %w", err)
		}
		out.PrivateKey = key
	}

	if h.PasswordEnv != "" {
		pw, err := secretFromEnv(h.PasswordEnv)
		if err != nil {
			return target.Host{}, fmt.Errorf("host: %w", err)
		}
		out.Password = pw
	}

	if len(out.PrivateKey) == 0 && out.Password == "" {
		return target.Host{}, errors.New("host: no credentials: set private_key_path, private_key_env or password_env")
	}
	return out, nil
}

func secretFromEnv(name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", fmt.Errorf("environment variable %s is not set", name)
	}
	return v, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
