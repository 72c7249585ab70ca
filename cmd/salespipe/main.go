// Package main provides the salespipe CLI entrypoint.
//
// Usage:
//
//	salespipe <command> [subcommand] [options]
//
// Exit codes for `run`:
//   - 0: success, or partial failure with the data preserved in a
//     fallback artifact
//   - 1: failure (nothing durable was produced)
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/sbs27/salespipe/cli/cmd"
	"github.com/sbs27/salespipe/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	// Optional .env for local development. Variables already present in
	// the environment win over file values.
	_ = godotenv.Load()

	app := &cli.App{
		Name:           "salespipe",
		Usage:          "Sales ETL pipeline CLI",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.RunCommand(),
			cmd.ServeCommand(),
			cmd.StatusCommand(),
			cmd.TriggerCommand(),
			cmd.ReportCommand(),
			cmd.InspectCommand(),
			cmd.GenCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes
// from cli.Exit() so run outcomes propagate to the shell.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	// Check for ExitCoder (from cli.Exit), handles wrapped errors
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// Only print if there's a real message (not just "exit status N")
		// cli.Exit("", N).Error() returns "exit status N", so skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	// Unexpected error - print and exit with code 1
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
