package config

// Config is the on-disk configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Host     HostConfig     `yaml:"host" toml:"host"`
	Deploy   DeployConfig   `yaml:"deploy" toml:"deploy"`

	// DropTables is the ordered list dropped by drop-legacy, dependents first.
	DropTables []string `yaml:"drop_tables" toml:"drop_tables"`
	// InspectTables are the tables whose row counts inspect reports.
	InspectTables []string `yaml:"inspect_tables" toml:"inspect_tables"`

	Timeouts TimeoutsConfig `yaml:"timeouts" toml:"timeouts"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`

	// path is the file the config was loaded from, if any.
	path string
}

// DatabaseConfig describes the database target.
type DatabaseConfig struct {
	Driver      string `yaml:"driver" toml:"driver"`
	Host        string `yaml:"host" toml:"host"`
	Port        int    `yaml:"port" toml:"port"`
	Name        string `yaml:"name" toml:"name"`
	User        string `yaml:"user" toml:"user"`
	PasswordEnv string `yaml:"password_env" toml:"password_env"`
	TLSMode     string `yaml:"tls_mode" toml:"tls_mode"`
	Schema      string `yaml:"schema" toml:"schema"`
	// Path is the database file when Driver is sqlite.
	Path string `yaml:"path" toml:"path"`
}

// HostConfig describes the remote host target.
type HostConfig struct {
	Address        string        `yaml:"address" toml:"address"`
	User           string        `yaml:"user" toml:"user"`
	PasswordEnv    string        `yaml:"password_env" toml:"password_env"`
	PrivateKeyPath string        `yaml:"private_key_path" toml:"private_key_path"`
	PrivateKeyEnv  string        `yaml:"private_key_env" toml:"private_key_env"`
	WorkDir        string        `yaml:"workdir" toml:"workdir"`
	HostKey        HostKeyConfig `yaml:"host_key" toml:"host_key"`
}

// HostKeyConfig selects how the host key is verified.
type HostKeyConfig struct {
	Policy      string `yaml:"policy" toml:"policy"`
	KnownHosts  string `yaml:"known_hosts" toml:"known_hosts"`
	Fingerprint string `yaml:"fingerprint" toml:"fingerprint"`
}

// DeployConfig describes the single-file deploy.
type DeployConfig struct {
	LocalFile  string `yaml:"local_file" toml:"local_file"`
	RemotePath string `yaml:"remote_path" toml:"remote_path"`
	Service    string `yaml:"service" toml:"service"`

	// Commands are text/template strings with {{.WorkDir}} and {{.Service}}.
	BuildCommand   string `yaml:"build_command" toml:"build_command"`
	RestartCommand string `yaml:"restart_command" toml:"restart_command"`
	StartCommand   string `yaml:"start_command" toml:"start_command"`

	OutputTailLines int `yaml:"output_tail_lines" toml:"output_tail_lines"`
}

// TimeoutsConfig holds duration strings such as "30s" or "5m".
type TimeoutsConfig struct {
	Connect        string `yaml:"connect" toml:"connect"`
	Statement      string `yaml:"statement" toml:"statement"`
	Command        string `yaml:"command" toml:"command"`
	Transfer       string `yaml:"transfer" toml:"transfer"`
	ConnectRetries *int   `yaml:"connect_retries" toml:"connect_retries"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	// Textfile is written after every run when set.
	Textfile string `yaml:"textfile" toml:"textfile"`
}

// Path returns the file the config was loaded from, or "".
func (c *Config) Path() string {
	return c.path
}
