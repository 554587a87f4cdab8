package dbops

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/opspipe/internal/pipeline"
	"github.com/imamik/opspipe/internal/platform/database"
)

// ExecuteSQL applies a batch of SQL statements atomically. The text comes
// from a trusted file and is executed as-is.
type ExecuteSQL struct {
	// Label names the batch in traces, usually the source file name.
	Label     string
	SQL       string
	MaxRunFor time.Duration
}

// Name implements pipeline.Step.
func (s ExecuteSQL) Name() string {
	if s.Label == "" {
		return "execute SQL"
	}
	return "execute SQL " + s.Label
}

// Timeout implements pipeline.Timeouter.
func (s ExecuteSQL) Timeout() time.Duration { return s.MaxRunFor }

// Run implements pipeline.Step.
func (s ExecuteSQL) Run(ctx context.Context, sess *database.Session, r pipeline.Recorder) (*pipeline.StepResult, error) {
	op := s.Name()
	dialect := sess.Dialect()
	stmts, err := dialect.Statements(s.SQL)
	if err != nil {
		return nil, pipeline.ExecutionError(op, err)
	}
	if len(stmts) == 0 {
		return nil, pipeline.ExecutionError(op, errors.New("no SQL statements to execute"))
	}
	if len(stmts) > 1 {
		r.Note("executing %d statements in one transaction", len(stmts))
	}

	var affected int64
	err = inTx(ctx, sess, func(tx *sql.Tx) error {
		for i, stmt := range stmts {
			res, err := tx.ExecContext(ctx, stmt)
			if err != nil {
				if len(stmts) == 1 {
					return err
				}
				return fmt.Errorf("statement %d of %d: %w", i+1, len(stmts), err)
			}
			if !dialect.CountsRows(stmt) {
				continue
			}
			if n, err := res.RowsAffected(); err == nil {
				affected += n
			}
		}
		return nil
	})
	if err != nil {
		return nil, pipeline.ExecutionError(op, err)
	}

	return &pipeline.StepResult{
		Output:       fmt.Sprintf("committed, %d row(s) affected", affected),
		RowsAffected: affected,
	}, nil
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func inTx(ctx context.Context, sess *database.Session, fn func(tx *sql.Tx) error) error {
	tx, err := sess.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
