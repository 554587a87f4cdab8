package testing

import (
	"slices"

	"github.com/imamik/opspipe/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a builder for a local SQLite database and a host
// verified by fingerprint.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		cfg: config.Config{
			Database: config.DatabaseConfig{
				Driver: "sqlite",
				Path:   ":memory:",
			},
			Host: config.HostConfig{
				Address: "127.0.0.1:22",
				User:    "deploy",
				WorkDir: "/srv/app",
			},
			Deploy: config.DeployConfig{
				LocalFile:  "app.tar.gz",
				RemotePath: "app.tar.gz",
				Service:    "web",
			},
		},
	}
}

// WithSQLite points the database at a SQLite file.
func (b *ConfigBuilder) WithSQLite(path string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Database = config.DatabaseConfig{Driver: "sqlite", Path: path}
	return newBuilder
}

// WithPostgres points the database at a Postgres server.
func (b *ConfigBuilder) WithPostgres(host, name, user, passwordEnv string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Database = config.DatabaseConfig{
		Driver:      "postgres",
		Host:        host,
		Name:        name,
		User:        user,
		PasswordEnv: passwordEnv,
	}
	return newBuilder
}

// WithHost sets the SSH address and user.
func (b *ConfigBuilder) WithHost(address, user string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Host.Address = address
	newBuilder.cfg.Host.User = user
	return newBuilder
}

// WithHostKeyFingerprint pins the host key.
func (b *ConfigBuilder) WithHostKeyFingerprint(fp string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Host.HostKey = config.HostKeyConfig{Policy: "fingerprint", Fingerprint: fp}
	return newBuilder
}

// WithPrivateKeyEnv reads the SSH key from an environment variable.
func (b *ConfigBuilder) WithPrivateKeyEnv(name string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Host.PrivateKeyEnv = name
	return newBuilder
}

// WithWorkDir sets the remote project directory.
func (b *ConfigBuilder) WithWorkDir(dir string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Host.WorkDir = dir
	return newBuilder
}

// WithDeploy replaces the deploy section.
func (b *ConfigBuilder) WithDeploy(d config.DeployConfig) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Deploy = d
	return newBuilder
}

// WithDropTables sets the drop-legacy list.
func (b *ConfigBuilder) WithDropTables(tables ...string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.DropTables = slices.Clone(tables)
	return newBuilder
}

// WithInspectTables sets the tables whose row counts inspect reports.
func (b *ConfigBuilder) WithInspectTables(tables ...string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.InspectTables = slices.Clone(tables)
	return newBuilder
}

// WithConnectRetries sets timeouts.connect_retries.
func (b *ConfigBuilder) WithConnectRetries(n int) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Timeouts.ConnectRetries = &n
	return newBuilder
}

// WithMetricsTextfile enables the Prometheus textfile export.
func (b *ConfigBuilder) WithMetricsTextfile(path string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Metrics.Textfile = path
	return newBuilder
}

// Build applies defaults and returns the configuration.
func (b *ConfigBuilder) Build() *config.Config {
	cfg := b.clone().cfg
	cfg.ApplyDefaults()
	return &cfg
}

func (b *ConfigBuilder) clone() *ConfigBuilder {
	c := b.cfg
	c.DropTables = slices.Clone(b.cfg.DropTables)
	c.InspectTables = slices.Clone(b.cfg.InspectTables)
	if b.cfg.Timeouts.ConnectRetries != nil {
		n := *b.cfg.Timeouts.ConnectRetries
		c.Timeouts.ConnectRetries = &n
	}
	return &ConfigBuilder{cfg: c}
}
