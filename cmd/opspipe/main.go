// Package main is the entry point for the opspipe CLI.
//
// opspipe runs short operational pipelines against one target: SQL
// migrations, legacy table drops and schema inspection against a database,
// and single-file deploys (upload, build, restart) against a host over SSH.
//
// Commands: migrate, drop-legacy, inspect, deploy, version, completion.
//
// For detailed usage information, run:
//
//	opspipe --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/opspipe/cmd/opspipe/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
