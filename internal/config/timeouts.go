package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
type Timeouts struct {
	Connect        time.Duration // Establishing a database or SSH session
	Statement      time.Duration // One database step
	Command        time.Duration // One remote command
	Transfer       time.Duration // One file upload
	ConnectRetries int           // Retries after a failed connection attempt
}

// DefaultTimeouts returns the built-in values.
func DefaultTimeouts() *Timeouts {
	return &Timeouts{
		Connect:        10 * time.Second,
		Statement:      5 * time.Minute,
		Command:        10 * time.Minute,
		Transfer:       5 * time.Minute,
		ConnectRetries: 2,
	}
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - OPSPIPE_TIMEOUT_CONNECT (default: 10s)
//   - OPSPIPE_TIMEOUT_STATEMENT (default: 5m)
//   - OPSPIPE_TIMEOUT_COMMAND (default: 10m)
//   - OPSPIPE_TIMEOUT_TRANSFER (default: 5m)
//   - OPSPIPE_CONNECT_RETRIES (default: 2)
func LoadTimeouts() *Timeouts {
	return DefaultTimeouts().withEnv()
}

// ResolveTimeouts resolves the effective timeouts: defaults, then the file, then
// environment overrides.
func (c *Config) ResolveTimeouts() (*Timeouts, error) {
	t := DefaultTimeouts()
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"connect", c.Timeouts.Connect, &t.Connect},
		{"statement", c.Timeouts.Statement, &t.Statement},
		{"command", c.Timeouts.Command, &t.Command},
		{"transfer", c.Timeouts.Transfer, &t.Transfer},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return nil, fmt.Errorf("timeouts.%s: %w", f.name, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("timeouts.%s must be positive, got %s", f.name, f.raw)
		}
		*f.dst = d
	}
	if c.Timeouts.ConnectRetries != nil {
		if *c.Timeouts.ConnectRetries < 0 {
			return nil, fmt.Errorf("timeouts.connect_retries cannot be negative")
		}
		t.ConnectRetries = *c.Timeouts.ConnectRetries
	}
	return t.withEnv(), nil
}

func (t *Timeouts) withEnv() *Timeouts {
	t.Connect = parseDuration("OPSPIPE_TIMEOUT_CONNECT", t.Connect)
	t.Statement = parseDuration("OPSPIPE_TIMEOUT_STATEMENT", t.Statement)
	t.Command = parseDuration("OPSPIPE_TIMEOUT_COMMAND", t.Command)
	t.Transfer = parseDuration("OPSPIPE_TIMEOUT_TRANSFER", t.Transfer)
	t.ConnectRetries = parseInt("OPSPIPE_CONNECT_RETRIES", t.ConnectRetries)
	return t
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}

	return i
}
