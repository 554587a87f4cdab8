package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/opspipe/cmd/opspipe/handlers"
)

// Inspect returns the inspect command.
func Inspect(globals *handlers.Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "List tables and row counts",
		Long: `Inspect lists the tables in the configured schema and prints row counts
for the tables in inspect_tables. A missing table is reported as not found
and does not fail the command. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Inspect(cmd.Context(), *globals)
		},
	}
}
