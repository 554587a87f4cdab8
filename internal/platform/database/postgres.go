package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/lib/pq"
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/imamik/opspipe/internal/target"
)

// Postgres error codes used for classification.
const (
	pgUndefinedTable       = "42P01"
	pgInvalidPassword      = "28P01"
	pgInvalidAuthorization = "28000"
)

// Postgres implements Dialect for PostgreSQL.
type Postgres struct{}

// Name implements Dialect.
func (Postgres) Name() string { return string(target.DriverPostgres) }

// Statements implements Dialect using the Postgres parser, so a syntax
// error anywhere in the batch is reported before the first statement runs.
func (Postgres) Statements(batch string) ([]string, error) {
	tree, err := pg_query.Parse(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SQL: %w", err)
	}
	for i, raw := range tree.GetStmts() {
		if raw.GetStmt().GetTransactionStmt() != nil {
			return nil, fmt.Errorf("statement %d: %w", i+1, ErrTransactionControl)
		}
	}

	stmts, err := pg_query.SplitWithParser(batch, true)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SQL: %w", err)
	}
	out := make([]string, 0, len(stmts))
	for _, s := range stmts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// QuoteIdentifier implements Dialect.
func (Postgres) QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// DropTableIfExists implements Dialect.
func (p Postgres) DropTableIfExists(schema, table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", p.QuoteIdentifier(qualify(schema, table)))
}

// ListTablesQuery implements Dialect.
func (Postgres) ListTablesQuery(schema string) (string, []any) {
	if schema == "" {
		schema = "public"
	}
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE' ORDER BY table_name", []any{schema}
}

// CountRowsQuery implements Dialect.
func (p Postgres) CountRowsQuery(schema, table string) string {
	return "SELECT COUNT(*) FROM " + p.QuoteIdentifier(qualify(schema, table))
}

// CountsRows implements Dialect. lib/pq reports the command tag of each
// statement, zero for DDL.
func (Postgres) CountsRows(string) bool { return true }

// qualify prefixes an unqualified table with schema so it does not resolve
// through search_path.
func qualify(schema, table string) string {
	if schema == "" || strings.Contains(table, ".") {
		return table
	}
	return schema + "." + table
}

// IsUndefinedTable implements Dialect.
func (Postgres) IsUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgUndefinedTable
}

// isAuthFailure reports errors that retrying cannot fix.
func isAuthFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	code := string(pqErr.Code)
	return code == pgInvalidPassword || code == pgInvalidAuthorization
}

// postgresDSN builds a lib/pq URL. TLS is mandatory.
func postgresDSN(t target.Database) (string, error) {
	if !t.TLSMode.Encrypted() {
		return "", fmt.Errorf("refusing unencrypted postgres connection: sslmode %q", t.TLSMode)
	}
	if t.Host == "" {
		return "", errors.New("database host cannot be empty")
	}
	port := t.Port
	if port == 0 {
		port = 5432
	}

	q := url.Values{}
	q.Set("sslmode", string(t.TLSMode))
	if t.ConnectTimeout > 0 {
		secs := int(t.ConnectTimeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		q.Set("connect_timeout", strconv.Itoa(secs))
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(t.Host, strconv.Itoa(port)),
		Path:     "/" + t.Name,
		RawQuery: q.Encode(),
	}
	if t.Password != "" {
		u.User = url.UserPassword(t.User, t.Password)
	} else {
		u.User = url.User(t.User)
	}
	return u.String(), nil
}
