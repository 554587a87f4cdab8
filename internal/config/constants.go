package config

const (
	// DefaultConfigFilename is looked up first when no --config is given.
	DefaultConfigFilename = "opspipe.yaml"
	// AlternateConfigFilename is looked up when no YAML config exists.
	AlternateConfigFilename = "opspipe.toml"

	DefaultDriver        = "postgres"
	DefaultTLSMode       = "require"
	DefaultPostgresPort  = 5432
	DefaultSchema        = "public"
	DefaultHostKeyPolicy = "known_hosts"

	DefaultBuildCommand   = "rm -rf .next && npm run build"
	DefaultRestartCommand = "pm2 restart {{.Service}}"
	DefaultStartCommand   = "pm2 start ecosystem.config.js"
	DefaultTailLines      = 30
)
