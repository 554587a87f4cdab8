package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/imamik/opspipe/cmd/opspipe/handlers"
)

// Migrate returns the migrate command.
func Migrate(globals *handlers.Globals) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "migrate [file.sql]",
		Short: "Apply a SQL file to the database in one transaction",
		Long: `Migrate applies every statement of a SQL file to the configured database.

All statements run in a single transaction: if any statement fails, nothing
is committed and the command exits non-zero. The file is executed as-is;
there is no migration history table.

Example:
  opspipe migrate migrations/004_add_plans.sql
  opspipe migrate --file schema.sql -c opspipe.toml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if len(args) == 1 {
				if file != "" && file != args[0] {
					return errors.New("give the SQL file either as an argument or with --file, not both")
				}
				path = args[0]
			}
			if path == "" {
				return errors.New("a SQL file is required")
			}
			return handlers.Migrate(cmd.Context(), *globals, path)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the SQL file")

	return cmd
}
