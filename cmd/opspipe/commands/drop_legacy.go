package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/opspipe/cmd/opspipe/handlers"
)

// DropLegacy returns the drop-legacy command.
func DropLegacy(globals *handlers.Globals) *cobra.Command {
	var opts handlers.DropOptions

	cmd := &cobra.Command{
		Use:   "drop-legacy",
		Short: "Drop the configured legacy tables",
		Long: `Drop-legacy drops every table listed in drop_tables, in the configured
order, inside one transaction. Tables that do not exist are skipped.

The command asks for confirmation unless --yes is given. Without a terminal,
--yes is required.

Example:
  opspipe drop-legacy --dry-run
  opspipe drop-legacy --yes

WARNING: Dropped tables and their data cannot be recovered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.DropLegacy(cmd.Context(), *globals, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the statements without connecting")

	return cmd
}
