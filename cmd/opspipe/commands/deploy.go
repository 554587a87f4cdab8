package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/opspipe/cmd/opspipe/handlers"
)

// Deploy returns the deploy command.
func Deploy(globals *handlers.Globals) *cobra.Command {
	var opts handlers.DeployOptions

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Upload a file, build and restart the service",
		Long: `Deploy runs three steps against the configured host:

  1. transfer  upload the local file to the remote path
  2. build     run the build command in the working directory
  3. restart   restart the service, or start it if it is not registered

Each step runs only if the previous one succeeded. Commands come from the
deploy section of the configuration.

Example:
  opspipe deploy
  opspipe deploy --file dist/page.tsx --remote-path src/app/page.tsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deploy(cmd.Context(), *globals, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.LocalFile, "file", "f", "", "Local file to upload (overrides deploy.local_file)")
	cmd.Flags().StringVar(&opts.RemotePath, "remote-path", "", "Destination on the host (overrides deploy.remote_path)")

	return cmd
}
