package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/imamik/opspipe/internal/target"
)

// identifierPattern matches a plain or schema-qualified SQL identifier.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

// ValidDrivers lists supported database drivers.
var ValidDrivers = map[string]bool{
	string(target.DriverPostgres): true,
	string(target.DriverSQLite):   true,
}

// ValidTLSModes lists the Postgres sslmodes that guarantee encryption.
var ValidTLSModes = map[string]bool{
	string(target.TLSRequire):    true,
	string(target.TLSVerifyCA):   true,
	string(target.TLSVerifyFull): true,
}

// ValidHostKeyPolicies lists accepted host key policies.
var ValidHostKeyPolicies = map[string]bool{
	string(target.HostKeyKnownHosts):  true,
	string(target.HostKeyFingerprint): true,
	string(target.HostKeyInsecure):    true,
}

// ApplyDefaults fills unset fields. Sections left empty stay empty.
func (c *Config) ApplyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.Database.Driver == string(target.DriverPostgres) {
		if c.Database.TLSMode == "" {
			c.Database.TLSMode = DefaultTLSMode
		}
		if c.Database.Port == 0 {
			c.Database.Port = DefaultPostgresPort
		}
		if c.Database.Schema == "" {
			c.Database.Schema = DefaultSchema
		}
	}

	if c.Host.HostKey.Policy == "" {
		c.Host.HostKey.Policy = DefaultHostKeyPolicy
	}

	d := &c.Deploy
	if d.BuildCommand == "" {
		d.BuildCommand = DefaultBuildCommand
	}
	if d.RestartCommand == "" {
		d.RestartCommand = DefaultRestartCommand
	}
	if d.StartCommand == "" {
		d.StartCommand = DefaultStartCommand
	}
	if d.OutputTailLines == 0 {
		d.OutputTailLines = DefaultTailLines
	}
}

// Validate checks values that are wrong regardless of which action runs.
// Required fields are checked when a target is resolved.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.validateHost(); err != nil {
		return fmt.Errorf("host: %w", err)
	}
	if c.Deploy.OutputTailLines < 0 {
		return errors.New("deploy: output_tail_lines cannot be negative")
	}
	if err := validateTables("drop_tables", c.DropTables); err != nil {
		return err
	}
	if err := validateTables("inspect_tables", c.InspectTables); err != nil {
		return err
	}
	if _, err := c.ResolveTimeouts(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDatabase() error {
	db := c.Database
	if !ValidDrivers[db.Driver] {
		return fmt.Errorf("unsupported driver %q (want postgres or sqlite)", db.Driver)
	}
	if db.Driver == string(target.DriverPostgres) {
		if !ValidTLSModes[db.TLSMode] {
			return fmt.Errorf("tls_mode %q is not allowed: encrypted transport is required (require, verify-ca or verify-full)", db.TLSMode)
		}
		if db.Port < 0 || db.Port > 65535 {
			return fmt.Errorf("invalid port %d", db.Port)
		}
	}
	if db.Schema != "" && !identifierPattern.MatchString(db.Schema) {
		return fmt.Errorf("invalid schema name %q", db.Schema)
	}
	if db.PasswordEnv != "" && strings.ContainsAny(db.PasswordEnv, "= ") {
		return fmt.Errorf("password_env must name an environment variable, got %q", db.PasswordEnv)
	}
	return nil
}

func (c *Config) validateHost() error {
	h := c.Host
	if !ValidHostKeyPolicies[h.HostKey.Policy] {
		return fmt.Errorf("unknown host_key.policy %q", h.HostKey.Policy)
	}
	if h.HostKey.Policy == string(target.HostKeyFingerprint) && !strings.HasPrefix(h.HostKey.Fingerprint, "SHA256:") {
		return errors.New("host_key.fingerprint must be a SHA256 fingerprint when policy is fingerprint")
	}
	for name, v := range map[string]string{"password_env": h.PasswordEnv, "private_key_env": h.PrivateKeyEnv} {
		if v != "" && strings.ContainsAny(v, "= ") {
			return fmt.Errorf("%s must name an environment variable, got %q", name, v)
		}
	}
	return nil
}

func validateTables(field string, tables []string) error {
	seen := make(map[string]bool, len(tables))
	for _, t := range tables {
		if !identifierPattern.MatchString(t) {
			return fmt.Errorf("%s: invalid table name %q", field, t)
		}
		if seen[t] {
			return fmt.Errorf("%s: duplicate table %q", field, t)
		}
		seen[t] = true
	}
	return nil
}

// Warnings returns non-fatal configuration concerns for the operator.
func (c *Config) Warnings() []string {
	var w []string
	if c.Host.Address != "" && c.Host.HostKey.Policy == string(target.HostKeyInsecure) {
		w = append(w, "host key verification is disabled (host_key.policy: insecure)")
	}
	return w
}
