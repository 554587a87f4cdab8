package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/lib/pq"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/imamik/opspipe/internal/target"
	"github.com/imamik/opspipe/internal/util/retry"
)

// Session is a single live connection to a database target.
type Session struct {
	db      *sql.DB
	conn    *sql.Conn
	dialect Dialect

	closeOnce sync.Once
	closeErr  error
}

// Open establishes one session to t. It does not retry; authentication
// failures are marked fatal so callers that do retry stop immediately.
func Open(ctx context.Context, t target.Database) (*Session, error) {
	dialect, err := DialectFor(t.Driver)
	if err != nil {
		return nil, err
	}

	db, err := openDB(t)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if t.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.ConnectTimeout)
		defer cancel()
	}

	conn, err := db.Conn(ctx)
	if err == nil {
		err = conn.PingContext(ctx)
		if err != nil {
			_ = conn.Close()
		}
	}
	if err != nil {
		_ = db.Close()
		err = fmt.Errorf("failed to connect to %s: %w", t, err)
		if isAuthFailure(err) {
			return nil, retry.Fatal(err)
		}
		return nil, err
	}

	return &Session{db: db, conn: conn, dialect: dialect}, nil
}

func openDB(t target.Database) (*sql.DB, error) {
	switch t.Driver {
	case target.DriverPostgres:
		dsn, err := postgresDSN(t)
		if err != nil {
			return nil, err
		}
		connector, err := pq.NewConnector(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid postgres connection settings: %w", err)
		}
		return sql.OpenDB(connector), nil
	case target.DriverSQLite:
		if t.Path == "" {
			return nil, fmt.Errorf("sqlite path cannot be empty")
		}
		db, err := sql.Open("sqlite", t.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", t.Driver)
	}
}

// Dialect returns the engine dialect of the session.
func (s *Session) Dialect() Dialect {
	return s.dialect
}

// BeginTx starts a transaction on the session's connection.
func (s *Session) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return s.conn.BeginTx(ctx, opts)
}

// QueryContext runs a query on the session's connection.
func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query on the session's connection.
func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.conn.QueryRowContext(ctx, query, args...)
}

// Close releases the connection. It is safe to call more than once; later
// calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		connErr := s.conn.Close()
		dbErr := s.db.Close()
		if connErr != nil {
			s.closeErr = connErr
		} else {
			s.closeErr = dbErr
		}
	})
	return s.closeErr
}

// Connector opens sessions for one database target.
type Connector struct {
	Target target.Database
}

// Open implements pipeline.Connector.
func (c Connector) Open(ctx context.Context) (*Session, error) {
	return Open(ctx, c.Target)
}

// Describe implements pipeline.Connector.
func (c Connector) Describe() string {
	return c.Target.String()
}
