// Package config loads the opspipe configuration file and resolves it into
// immutable targets.
//
// The file is YAML (opspipe.yaml) or TOML (opspipe.toml). Secrets are never
// read from the file itself: fields ending in _env name environment
// variables, which may be supplied through a .env file next to the config.
package config
