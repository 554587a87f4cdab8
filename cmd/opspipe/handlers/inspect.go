package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/opspipe/internal/dbops"
	"github.com/imamik/opspipe/internal/pipeline"
	"github.com/imamik/opspipe/internal/platform/database"
)

// Inspect lists the tables of the configured schema and the row counts of
// the configured tables of interest. Missing tables are reported, not fatal.
func Inspect(ctx context.Context, g Globals) error {
	env, err := setup(g)
	if err != nil {
		return err
	}

	db, err := env.cfg.DatabaseTarget(env.timeouts)
	if err != nil {
		return err
	}

	steps := []pipeline.Step[*database.Session]{
		dbops.InspectSchema{
			Schema:    db.Schema,
			Tables:    env.cfg.InspectTables,
			MaxRunFor: env.timeouts.Statement,
		},
	}
	outcome, err := execute(ctx, env, "inspect", newDatabaseConnector(db), steps)
	if err != nil {
		return err
	}

	if len(outcome.Results) == 1 {
		if report, ok := outcome.Results[0].Details.(*dbops.Report); ok {
			_, _ = fmt.Fprint(stdout, renderReport(report, styledOutput()))
		}
	}
	return nil
}
