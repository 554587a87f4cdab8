package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/opspipe/internal/dbops"
	"github.com/imamik/opspipe/internal/pipeline"
	"github.com/imamik/opspipe/internal/platform/database"
)

// readFile reads the SQL batch - can be replaced in tests.
var readFile = os.ReadFile

// Migrate applies one SQL file to the database in a single transaction.
func Migrate(ctx context.Context, g Globals, sqlFile string) error {
	env, err := setup(g)
	if err != nil {
		return err
	}

	data, err := readFile(sqlFile)
	if err != nil {
		return fmt.Errorf("failed to read SQL file: %w", err)
	}

	db, err := env.cfg.DatabaseTarget(env.timeouts)
	if err != nil {
		return err
	}

	steps := []pipeline.Step[*database.Session]{
		dbops.ExecuteSQL{
			Label:     filepath.Base(sqlFile),
			SQL:       string(data),
			MaxRunFor: env.timeouts.Statement,
		},
	}
	_, err = execute(ctx, env, "migrate", newDatabaseConnector(db), steps)
	return err
}
