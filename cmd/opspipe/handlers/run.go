// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/imamik/opspipe/internal/config"
	"github.com/imamik/opspipe/internal/pipeline"
	"github.com/imamik/opspipe/internal/platform/database"
	"github.com/imamik/opspipe/internal/remote"
	"github.com/imamik/opspipe/internal/target"
)

// Globals carries the persistent root flags.
type Globals struct {
	// ConfigPath is the config file. Searched for when empty.
	ConfigPath string
	Verbose    bool
}

// Factory function variables - can be replaced in tests.
var (
	// findConfigFile locates the config when --config is omitted.
	findConfigFile = config.FindConfigFile

	// loadConfigFile reads and validates a config file.
	loadConfigFile = config.Load

	// loadDotenv populates secrets from .env files.
	loadDotenv = config.LoadDotenv

	// newObserver creates the trace reporter.
	newObserver = func() pipeline.Observer {
		return pipeline.NewConsoleObserver()
	}

	// newDatabaseConnector opens database sessions.
	newDatabaseConnector = func(t target.Database) pipeline.Connector[*database.Session] {
		return database.Connector{Target: t}
	}

	// newHostConnector opens SSH sessions.
	newHostConnector = func(t target.Host) pipeline.Connector[remote.Executor] {
		return remote.Connector{Target: t}
	}

	// isInteractive reports whether prompts can be shown.
	isInteractive = func() bool {
		return pipeline.IsTerminal(os.Stdin) && pipeline.IsTerminal(os.Stdout)
	}

	// confirm asks a yes/no question.
	confirm = func(ctx context.Context, title, description string) (bool, error) {
		var ok bool
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(title).
					Description(description).
					Affirmative("Yes").
					Negative("No").
					Value(&ok),
			),
		).RunWithContext(ctx)
		return ok, err
	}

	// stdout receives summaries.
	stdout io.Writer = os.Stdout

	// stderr receives debug logs.
	stderr io.Writer = os.Stderr

	// styledOutput reports whether summaries may use colors.
	styledOutput = func() bool {
		return pipeline.IsTerminal(os.Stdout)
	}
)

// runEnv is what every action needs before it builds its steps.
type runEnv struct {
	cfg      *config.Config
	timeouts *config.Timeouts
	obs      pipeline.Observer
	log      logr.Logger
}

func setup(g Globals) (*runEnv, error) {
	path := g.ConfigPath
	if path == "" {
		found, err := findConfigFile()
		if err != nil {
			return nil, fmt.Errorf("no --config given: %w", err)
		}
		path = found
	}

	cfg, err := loadConfigFile(path)
	if err != nil {
		return nil, err
	}
	if _, err := loadDotenv(cfg); err != nil {
		return nil, err
	}

	timeouts, err := cfg.ResolveTimeouts()
	if err != nil {
		return nil, err
	}

	env := &runEnv{
		cfg:      cfg,
		timeouts: timeouts,
		obs:      newObserver(),
		log:      newLogger(g.Verbose),
	}
	for _, w := range cfg.Warnings() {
		env.obs.Printf("warning: %s", w)
	}
	env.log.V(1).Info("configuration loaded", "path", path, "connectRetries", timeouts.ConnectRetries)
	return env, nil
}

func newLogger(verbose bool) logr.Logger {
	if !verbose {
		return logr.Discard()
	}
	w := stderr
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		_, _ = fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: 1, LogTimestamp: true})
}

// execute runs steps against the connector and exports metrics when configured.
func execute[H pipeline.Handle](ctx context.Context, env *runEnv, task string, conn pipeline.Connector[H], steps []pipeline.Step[H]) (*pipeline.Outcome, error) {
	metrics := pipeline.NewMetrics()
	runner := pipeline.NewRunner(conn, steps, pipeline.Options{
		Task:           task,
		Observer:       env.obs,
		Logger:         env.log,
		Metrics:        metrics,
		ConnectRetries: env.timeouts.ConnectRetries,
	})

	outcome, err := runner.Run(ctx)

	if path := env.cfg.Metrics.Textfile; path != "" {
		if werr := metrics.WriteTextfile(path); werr != nil {
			env.obs.Printf("warning: failed to write metrics: %v", werr)
		} else {
			env.log.V(1).Info("metrics written", "path", path)
		}
	}

	_, _ = fmt.Fprint(stdout, renderOutcome(outcome, len(steps), styledOutput()))
	return outcome, err
}
