package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearTimeoutEnvVars(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"OPSPIPE_TIMEOUT_CONNECT",
		"OPSPIPE_TIMEOUT_STATEMENT",
		"OPSPIPE_TIMEOUT_COMMAND",
		"OPSPIPE_TIMEOUT_TRANSFER",
		"OPSPIPE_CONNECT_RETRIES",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadTimeouts_Defaults(t *testing.T) {
	clearTimeoutEnvVars(t)

	timeouts := LoadTimeouts()

	assert.Equal(t, 10*time.Second, timeouts.Connect)
	assert.Equal(t, 5*time.Minute, timeouts.Statement)
	assert.Equal(t, 10*time.Minute, timeouts.Command)
	assert.Equal(t, 5*time.Minute, timeouts.Transfer)
	assert.Equal(t, 2, timeouts.ConnectRetries)
}

func TestLoadTimeouts_EnvVars(t *testing.T) {
	clearTimeoutEnvVars(t)
	t.Setenv("OPSPIPE_TIMEOUT_CONNECT", "30s")
	t.Setenv("OPSPIPE_TIMEOUT_STATEMENT", "1m")
	t.Setenv("OPSPIPE_TIMEOUT_COMMAND", "20m")
	t.Setenv("OPSPIPE_TIMEOUT_TRANSFER", "90s")
	t.Setenv("OPSPIPE_CONNECT_RETRIES", "5")

	timeouts := LoadTimeouts()

	assert.Equal(t, 30*time.Second, timeouts.Connect)
	assert.Equal(t, time.Minute, timeouts.Statement)
	assert.Equal(t, 20*time.Minute, timeouts.Command)
	assert.Equal(t, 90*time.Second, timeouts.Transfer)
	assert.Equal(t, 5, timeouts.ConnectRetries)
}

func TestLoadTimeouts_InvalidEnvVars(t *testing.T) {
	clearTimeoutEnvVars(t)
	t.Setenv("OPSPIPE_TIMEOUT_CONNECT", "invalid")
	t.Setenv("OPSPIPE_TIMEOUT_COMMAND", "-5m")
	t.Setenv("OPSPIPE_CONNECT_RETRIES", "many")

	timeouts := LoadTimeouts()

	assert.Equal(t, 10*time.Second, timeouts.Connect)
	assert.Equal(t, 10*time.Minute, timeouts.Command)
	assert.Equal(t, 2, timeouts.ConnectRetries)
}

func TestResolveTimeouts_FileThenEnv(t *testing.T) {
	clearTimeoutEnvVars(t)
	retries := 4
	cfg := &Config{Timeouts: TimeoutsConfig{Connect: "3s", Command: "1h", ConnectRetries: &retries}}

	timeouts, err := cfg.ResolveTimeouts()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, timeouts.Connect)
	assert.Equal(t, time.Hour, timeouts.Command)
	assert.Equal(t, 5*time.Minute, timeouts.Statement)
	assert.Equal(t, 4, timeouts.ConnectRetries)

	t.Setenv("OPSPIPE_TIMEOUT_COMMAND", "15m")
	timeouts, err = cfg.ResolveTimeouts()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, timeouts.Command, "environment overrides the file")
}

func TestResolveTimeouts_Invalid(t *testing.T) {
	clearTimeoutEnvVars(t)
	_, err := (&Config{Timeouts: TimeoutsConfig{Transfer: "0s"}}).ResolveTimeouts()
	assert.ErrorContains(t, err, "timeouts.transfer must be positive")
}
