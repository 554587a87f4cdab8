package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
database:
  host: db.example.com
  name: app
  user: postgres
  password_env: TEST_DB_PASSWORD
host:
  address: 203.0.113.10
  user: deploy
  password_env: TEST_SSH_PASSWORD
  workdir: /srv/app
  host_key:
    policy: fingerprint
    fingerprint: "SHA256:abc"
deploy:
  local_file: ./page.tsx
  remote_path: src/app/page.tsx
  service: web
drop_tables:
  - orders
  - customers
inspect_tables: [users, plans]
timeouts:
  connect: 3s
  connect_retries: 0
`

const sampleTOML = `
drop_tables = ["orders"]

[database]
driver = "sqlite"
path = "local.db"

[host]
address = "203.0.113.10:2222"
user = "deploy"

[deploy]
build_command = "make"
output_tail_lines = 10
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "opspipe.yaml", sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "require", cfg.Database.TLSMode)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "public", cfg.Database.Schema)
	assert.Equal(t, []string{"orders", "customers"}, cfg.DropTables)
	assert.Equal(t, []string{"users", "plans"}, cfg.InspectTables)
	assert.Equal(t, DefaultBuildCommand, cfg.Deploy.BuildCommand)
	assert.Equal(t, DefaultRestartCommand, cfg.Deploy.RestartCommand)
	assert.Equal(t, DefaultStartCommand, cfg.Deploy.StartCommand)
	assert.Equal(t, 30, cfg.Deploy.OutputTailLines)
	require.NotNil(t, cfg.Timeouts.ConnectRetries)
	assert.Equal(t, 0, *cfg.Timeouts.ConnectRetries)
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "opspipe.toml", sampleTOML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "local.db"), cfg.Database.Path)
	assert.Empty(t, cfg.Database.TLSMode, "tls mode only applies to postgres")
	assert.Equal(t, "make", cfg.Deploy.BuildCommand)
	assert.Equal(t, 10, cfg.Deploy.OutputTailLines)
	assert.Equal(t, "known_hosts", cfg.Host.HostKey.Policy)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"unknown yaml key", "c.yaml", "databse:\n  host: x\n", "failed to parse YAML"},
		{"unknown toml key", "c.toml", "[databse]\nhost = \"x\"\n", "failed to parse TOML"},
		{"plaintext postgres", "c.yaml", "database:\n  tls_mode: disable\n", "encrypted transport is required"},
		{"bad driver", "c.yaml", "database:\n  driver: mysql\n", "unsupported driver"},
		{"bad table name", "c.yaml", "drop_tables: [\"users; drop\"]\n", "invalid table name"},
		{"duplicate table", "c.yaml", "inspect_tables: [a, a]\n", "duplicate table"},
		{"bad host key policy", "c.yaml", "host:\n  host_key:\n    policy: trust\n", "unknown host_key.policy"},
		{"fingerprint without value", "c.yaml", "host:\n  host_key:\n    policy: fingerprint\n", "SHA256 fingerprint"},
		{"bad timeout", "c.yaml", "timeouts:\n  command: soon\n", "timeouts.command"},
		{"negative retries", "c.yaml", "timeouts:\n  connect_retries: -1\n", "connect_retries"},
		{"secret in env field", "c.yaml", "database:\n  password_env: \"hunter2 \"\n", "must name an environment variable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoadFromBytes_Empty(t *testing.T) {
	cfg, err := LoadFromBytes(nil, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Empty(t, cfg.Path())
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatTOML, FormatFor("opspipe.TOML"))
	assert.Equal(t, FormatYAML, FormatFor("opspipe.yml"))
	assert.Equal(t, FormatYAML, FormatFor("opspipe"))
}

func TestFindConfigFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	_, err := findConfigFrom(nested)
	require.Error(t, err)

	toml := filepath.Join(root, AlternateConfigFilename)
	require.NoError(t, os.WriteFile(toml, nil, 0o600))
	got, err := findConfigFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, toml, got)

	yml := filepath.Join(root, "a", DefaultConfigFilename)
	require.NoError(t, os.WriteFile(yml, nil, 0o600))
	got, err = findConfigFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, yml, got, "nearest directory wins")

	require.NoError(t, os.WriteFile(filepath.Join(root, "a", AlternateConfigFilename), nil, 0o600))
	got, err = findConfigFrom(filepath.Join(root, "a"))
	require.NoError(t, err)
	assert.Equal(t, yml, got, "yaml is preferred over toml")

	t.Chdir(nested)
	got, err = FindConfigFile()
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(yml), filepath.Base(got))
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "opspipe.yaml", "")
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), ".env"),
		[]byte("OPSPIPE_TEST_FROM_FILE=file\nOPSPIPE_TEST_PRESET=file\n"), 0o600))
	t.Chdir(dir)

	t.Setenv("OPSPIPE_TEST_PRESET", "process")
	t.Setenv("OPSPIPE_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("OPSPIPE_TEST_FROM_FILE"))

	cfg, err := Load(path)
	require.NoError(t, err)
	loaded, err := LoadDotenv(cfg)
	require.NoError(t, err)

	assert.Len(t, loaded, 1)
	assert.Equal(t, "file", os.Getenv("OPSPIPE_TEST_FROM_FILE"))
	assert.Equal(t, "process", os.Getenv("OPSPIPE_TEST_PRESET"), "existing variables are not overridden")
}

func TestLoadDotenv_NoFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	loaded, err := LoadDotenv(nil)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
