package handlers

import (
	"context"
	"errors"
	"path"

	"github.com/imamik/opspipe/internal/remote"
)

// DeployOptions override the deploy section of the config.
type DeployOptions struct {
	LocalFile  string
	RemotePath string
}

// Deploy uploads one file to the host, runs the build and restarts the
// service, stopping at the first failure.
func Deploy(ctx context.Context, g Globals, opts DeployOptions) error {
	env, err := setup(g)
	if err != nil {
		return err
	}

	host, err := env.cfg.HostTarget(env.timeouts)
	if err != nil {
		return err
	}

	dc := env.cfg.Deploy
	d := remote.Deploy{
		LocalFile:       dc.LocalFile,
		RemotePath:      dc.RemotePath,
		WorkDir:         host.WorkDir,
		Service:         dc.Service,
		BuildCommand:    dc.BuildCommand,
		RestartCommand:  dc.RestartCommand,
		StartCommand:    dc.StartCommand,
		TailLines:       dc.OutputTailLines,
		TransferTimeout: env.timeouts.Transfer,
		CommandTimeout:  env.timeouts.Command,
	}
	if opts.LocalFile != "" {
		d.LocalFile = opts.LocalFile
	}
	if opts.RemotePath != "" {
		d.RemotePath = opts.RemotePath
	}
	if d.WorkDir == "" && !path.IsAbs(d.RemotePath) {
		return errors.New("host.workdir is required when deploy.remote_path is relative")
	}

	steps, err := d.Steps()
	if err != nil {
		return err
	}
	_, err = execute(ctx, env, "deploy", newHostConnector(host), steps)
	return err
}
