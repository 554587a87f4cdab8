// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/opspipe/cmd/opspipe/handlers"
)

// Root returns the root command for the opspipe CLI.
//
// The persistent --config and --verbose flags are shared by every action.
func Root() *cobra.Command {
	globals := &handlers.Globals{}

	cmd := &cobra.Command{
		Use:           "opspipe",
		Short:         "Run database and deploy pipelines against a remote target",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&globals.ConfigPath, "config", "c", "", "Path to configuration file (default: opspipe.yaml or opspipe.toml, searched upwards)")
	cmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "Enable debug logging to stderr")

	// Actions
	cmd.AddCommand(Migrate(globals))
	cmd.AddCommand(DropLegacy(globals))
	cmd.AddCommand(Inspect(globals))
	cmd.AddCommand(Deploy(globals))

	// Utility commands
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
