package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/imamik/opspipe/internal/testing"
)

const legacySchema = `
CREATE TABLE customers (id INTEGER PRIMARY KEY);
CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER REFERENCES customers(id));
CREATE TABLE keep_me (id INTEGER PRIMARY KEY);
`

func tableCount(t *testing.T, dbPath string) int {
	t.Helper()
	return queryInt(t, dbPath, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'")
}

func TestDropLegacy_Yes(t *testing.T) {
	dbPath := seedSQLite(t, legacySchema)
	tio := useConfig(t, testutil.NewConfigBuilder().
		WithSQLite(dbPath).
		WithDropTables("orders", "customers", "never_existed").
		Build())

	require.NoError(t, DropLegacy(context.Background(), Globals{}, DropOptions{Yes: true}))
	assert.Equal(t, 1, tableCount(t, dbPath))

	// Dropping again is a no-op success.
	require.NoError(t, DropLegacy(context.Background(), Globals{}, DropOptions{Yes: true}))
	assert.Equal(t, 1, tableCount(t, dbPath))
	assert.Contains(t, tio.out.String(), "drop-legacy Success")
}

func TestDropLegacy_DryRun(t *testing.T) {
	dbPath := seedSQLite(t, legacySchema)
	tio := useConfig(t, testutil.NewConfigBuilder().WithSQLite(dbPath).WithDropTables("orders", "customers").Build())

	require.NoError(t, DropLegacy(context.Background(), Globals{}, DropOptions{DryRun: true}))

	assert.Equal(t, "DROP TABLE IF EXISTS \"orders\";\nDROP TABLE IF EXISTS \"customers\";\n", tio.out.String())
	assert.Equal(t, 3, tableCount(t, dbPath))
	assert.Empty(t, tio.trace.String(), "dry run never connects")
}

func TestDropLegacy_DryRunQualifiesWithSchema(t *testing.T) {
	cfg := testutil.NewConfigBuilder().
		WithPostgres("db.internal", "shop", "deploy", "").
		WithDropTables("orders", "audit.customers").
		Build()
	cfg.Database.Schema = "app"
	tio := useConfig(t, cfg)

	require.NoError(t, DropLegacy(context.Background(), Globals{}, DropOptions{DryRun: true}))

	assert.Equal(t, "DROP TABLE IF EXISTS \"app\".\"orders\" CASCADE;\nDROP TABLE IF EXISTS \"audit\".\"customers\" CASCADE;\n", tio.out.String())
}

func TestDropLegacy_RequiresConfirmation(t *testing.T) {
	dbPath := seedSQLite(t, legacySchema)
	useConfig(t, testutil.NewConfigBuilder().WithSQLite(dbPath).WithDropTables("orders").Build())

	err := DropLegacy(context.Background(), Globals{}, DropOptions{})
	assert.ErrorContains(t, err, "pass --yes")
	assert.Equal(t, 3, tableCount(t, dbPath))
}

func TestDropLegacy_Prompt(t *testing.T) {
	dbPath := seedSQLite(t, legacySchema)
	tio := useConfig(t, testutil.NewConfigBuilder().WithSQLite(dbPath).WithDropTables("orders").Build())
	isInteractive = func() bool { return true }

	var asked string
	confirm = func(_ context.Context, title, description string) (bool, error) {
		asked = title + " " + description
		return false, nil
	}
	require.NoError(t, DropLegacy(context.Background(), Globals{}, DropOptions{}))
	assert.Contains(t, asked, "Drop 1 table(s)")
	assert.Contains(t, asked, "orders")
	assert.Contains(t, tio.out.String(), "Aborted")
	assert.Equal(t, 3, tableCount(t, dbPath))

	confirm = func(context.Context, string, string) (bool, error) { return true, nil }
	require.NoError(t, DropLegacy(context.Background(), Globals{}, DropOptions{}))
	assert.Equal(t, 2, tableCount(t, dbPath))
}

func TestDropLegacy_EmptyList(t *testing.T) {
	useConfig(t, testutil.NewConfigBuilder().Build())

	err := DropLegacy(context.Background(), Globals{}, DropOptions{Yes: true})
	assert.ErrorContains(t, err, "drop_tables is empty")
}
