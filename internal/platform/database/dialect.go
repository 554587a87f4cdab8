package database

import (
	"errors"
	"fmt"

	"github.com/imamik/opspipe/internal/target"
)

// Dialect isolates engine-specific SQL.
type Dialect interface {
	// Name returns the driver name.
	Name() string

	// Statements splits a batch into statements executed one by one.
	// Syntax errors and transaction control statements are reported before
	// anything runs.
	Statements(batch string) ([]string, error)

	// QuoteIdentifier quotes a possibly schema-qualified table name.
	QuoteIdentifier(name string) string

	// DropTableIfExists returns a conditional drop that removes dependents too
	// where the engine supports it. An unqualified table resolves in schema.
	DropTableIfExists(schema, table string) string

	// ListTablesQuery returns a query yielding one table name per row.
	ListTablesQuery(schema string) (string, []any)

	// CountRowsQuery returns a query yielding the row count of table. An
	// unqualified table resolves in schema.
	CountRowsQuery(schema, table string) string

	// CountsRows reports whether the driver's affected-row count for stmt
	// belongs to stmt itself.
	CountsRows(stmt string) bool

	// IsUndefinedTable reports whether err means the table does not exist.
	IsUndefinedTable(err error) bool
}

// ErrTransactionControl marks a batch that manages its own transaction.
// Batches always run inside one transaction owned by the step.
var ErrTransactionControl = errors.New("transaction control statements are not allowed")

// DialectFor returns the dialect for a driver.
func DialectFor(driver target.Driver) (Dialect, error) {
	switch driver {
	case target.DriverPostgres:
		return Postgres{}, nil
	case target.DriverSQLite:
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
}
