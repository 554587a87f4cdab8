package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/opspipe/internal/dbops"
	"github.com/imamik/opspipe/internal/pipeline"
	"github.com/imamik/opspipe/internal/platform/database"
)

// DropOptions are the drop-legacy flags.
type DropOptions struct {
	// Yes skips the confirmation prompt.
	Yes bool
	// DryRun prints the statements without connecting.
	DryRun bool
}

// DropLegacy drops the configured legacy tables, in order, in one transaction.
// Missing tables are skipped.
func DropLegacy(ctx context.Context, g Globals, opts DropOptions) error {
	env, err := setup(g)
	if err != nil {
		return err
	}
	if len(env.cfg.DropTables) == 0 {
		return errors.New("drop_tables is empty: nothing to drop")
	}

	db, err := env.cfg.DatabaseTarget(env.timeouts)
	if err != nil {
		return err
	}
	dialect, err := database.DialectFor(db.Driver)
	if err != nil {
		return err
	}

	step := dbops.DropTables{Schema: db.Schema, Tables: env.cfg.DropTables, MaxRunFor: env.timeouts.Statement}
	if opts.DryRun {
		for _, stmt := range step.Statements(dialect) {
			_, _ = fmt.Fprintln(stdout, stmt+";")
		}
		return nil
	}

	if !opts.Yes {
		if !isInteractive() {
			return errors.New("refusing to drop tables without confirmation: pass --yes")
		}
		ok, err := confirm(ctx,
			fmt.Sprintf("Drop %d table(s) from %s?", len(step.Tables), db.String()),
			strings.Join(step.Tables, ", "),
		)
		if err != nil {
			return fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			_, _ = fmt.Fprintln(stdout, "Aborted, nothing was dropped.")
			return nil
		}
	}

	_, err = execute(ctx, env, "drop-legacy", newDatabaseConnector(db), []pipeline.Step[*database.Session]{step})
	return err
}
