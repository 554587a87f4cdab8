package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imamik/opspipe/internal/config"
	"github.com/imamik/opspipe/internal/pipeline"
	"github.com/imamik/opspipe/internal/platform/database"
	"github.com/imamik/opspipe/internal/remote"
	"github.com/imamik/opspipe/internal/target"
)

type testIO struct {
	trace *bytes.Buffer
	out   *bytes.Buffer
	logs  *bytes.Buffer
}

// useConfig swaps the factory variables so handlers run against cfg with
// captured output. Tests using it must not run in parallel.
func useConfig(t *testing.T, cfg *config.Config) *testIO {
	t.Helper()
	origFind := findConfigFile
	origLoad := loadConfigFile
	origDotenv := loadDotenv
	origObserver := newObserver
	origDB := newDatabaseConnector
	origHost := newHostConnector
	origInteractive := isInteractive
	origConfirm := confirm
	origStdout := stdout
	origStderr := stderr
	origStyled := styledOutput
	origRead := readFile
	t.Cleanup(func() {
		findConfigFile = origFind
		loadConfigFile = origLoad
		loadDotenv = origDotenv
		newObserver = origObserver
		newDatabaseConnector = origDB
		newHostConnector = origHost
		isInteractive = origInteractive
		confirm = origConfirm
		stdout = origStdout
		stderr = origStderr
		styledOutput = origStyled
		readFile = origRead
	})

	tio := &testIO{trace: &bytes.Buffer{}, out: &bytes.Buffer{}, logs: &bytes.Buffer{}}
	findConfigFile = func() (string, error) { return "opspipe.yaml", nil }
	loadConfigFile = func(string) (*config.Config, error) { return cfg, nil }
	loadDotenv = func(*config.Config) ([]string, error) { return nil, nil }
	newObserver = func() pipeline.Observer { return pipeline.NewWriterObserver(tio.trace, false) }
	isInteractive = func() bool { return false }
	confirm = func(context.Context, string, string) (bool, error) {
		t.Fatal("unexpected confirmation prompt")
		return false, nil
	}
	stdout = tio.out
	stderr = tio.logs
	styledOutput = func() bool { return false }

	for _, name := range []string{
		"OPSPIPE_TIMEOUT_CONNECT", "OPSPIPE_TIMEOUT_STATEMENT",
		"OPSPIPE_TIMEOUT_COMMAND", "OPSPIPE_TIMEOUT_TRANSFER", "OPSPIPE_CONNECT_RETRIES",
	} {
		t.Setenv(name, "")
	}
	return tio
}

// seedSQLite creates a database file and applies schema to it.
func seedSQLite(t *testing.T, schema string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	if schema != "" {
		_, err = db.Exec(schema)
		require.NoError(t, err)
	}
	return path
}

func queryInt(t *testing.T, path, query string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	var n int
	require.NoError(t, db.QueryRow(query).Scan(&n))
	return n
}

// failingDatabaseConnector never connects.
func failingDatabaseConnector(opens *int) func(target.Database) pipeline.Connector[*database.Session] {
	return func(t target.Database) pipeline.Connector[*database.Session] {
		return pipeline.ConnectorFunc[*database.Session]{
			Endpoint: t.String(),
			OpenFunc: func(context.Context) (*database.Session, error) {
				*opens++
				return nil, errors.New("connection refused")
			},
		}
	}
}

func mockHostConnector(exec remote.Executor) func(target.Host) pipeline.Connector[remote.Executor] {
	return func(t target.Host) pipeline.Connector[remote.Executor] {
		return pipeline.ConnectorFunc[remote.Executor]{
			Endpoint: t.String(),
			OpenFunc: func(context.Context) (remote.Executor, error) { return exec, nil },
		}
	}
}

// configType keeps factory signatures short in tests.
type configType = config.Config
