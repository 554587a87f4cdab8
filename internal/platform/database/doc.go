// Package database provides the connection handle for database targets.
//
// A [Session] owns exactly one *sql.Conn for the lifetime of a run and is
// closed idempotently. Engine differences (statement splitting, identifier
// quoting, table listing, undefined-table detection) are isolated behind
// [Dialect]: Postgres through lib/pq and pg_query_go, SQLite through
// modernc.org/sqlite.
//
// Postgres connections always use an encrypted transport; an unencrypted
// sslmode is rejected before dialing.
package database
