package dbops

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/imamik/opspipe/internal/pipeline"
	"github.com/imamik/opspipe/internal/platform/database"
)

// DropTables drops each configured table if it exists, in the configured
// order (dependents first). All drops share one transaction.
type DropTables struct {
	// Schema qualifies unqualified table names where the engine has schemas.
	Schema    string
	Tables    []string
	MaxRunFor time.Duration
}

// Name implements pipeline.Step.
func (s DropTables) Name() string { return "drop tables" }

// Timeout implements pipeline.Timeouter.
func (s DropTables) Timeout() time.Duration { return s.MaxRunFor }

// Statements returns the drop statements in execution order.
func (s DropTables) Statements(d database.Dialect) []string {
	out := make([]string, 0, len(s.Tables))
	for _, table := range s.Tables {
		out = append(out, d.DropTableIfExists(s.Schema, table))
	}
	return out
}

// Run implements pipeline.Step. Missing tables are no-ops.
func (s DropTables) Run(ctx context.Context, sess *database.Session, r pipeline.Recorder) (*pipeline.StepResult, error) {
	stmts := s.Statements(sess.Dialect())
	err := inTx(ctx, sess, func(tx *sql.Tx) error {
		for i, stmt := range stmts {
			r.Note("dropping table %s if exists", s.Tables[i])
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("drop %s: %w", s.Tables[i], err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, pipeline.ExecutionError(s.Name(), err)
	}

	return &pipeline.StepResult{
		Output:  fmt.Sprintf("%d table(s) dropped if present", len(stmts)),
		Details: append([]string(nil), s.Tables...),
	}, nil
}
