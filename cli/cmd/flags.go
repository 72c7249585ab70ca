// Package cmd provides CLI commands for the salespipe binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for select read-only commands (status, report, inspect).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (status, report, inspect only)",
	}

	// ConfigFlag points at the YAML pipeline config. Individual flags
	// override config values where both are given.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to YAML config file",
		EnvVars: []string{"SALESPIPE_CONFIG"},
	}

	// ServerFlag is the control API base URL for commands that talk to
	// a running salespipe serve process.
	ServerFlag = &cli.StringFlag{
		Name:    "server",
		Usage:   "Base URL of a running salespipe server",
		Value:   "http://localhost:8080",
		EnvVars: []string{"SALESPIPE_SERVER"},
	}
)

// pipelineFlags returns the input and load tuning flags shared by run
// and serve.
func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "csv",
			Usage: "Path to the sales CSV input file",
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "Logical source name, used as the artifact partition key",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Rows per INSERT statement",
		},
	}
}

// sinkFlags returns the destination store flags shared by run and serve.
func sinkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "sink-driver",
			Usage: "Destination driver: postgres, mysql",
		},
		&cli.StringFlag{
			Name:  "sink-host",
			Usage: "Destination database host",
		},
		&cli.IntFlag{
			Name:  "sink-port",
			Usage: "Destination database port",
		},
		&cli.StringFlag{
			Name:  "sink-database",
			Usage: "Destination database name",
		},
		&cli.StringFlag{
			Name:  "sink-user",
			Usage: "Destination database user",
		},
		&cli.StringFlag{
			Name:    "sink-password",
			Usage:   "Destination database password",
			EnvVars: []string{"SALESPIPE_SINK_PASSWORD"},
		},
		&cli.StringFlag{
			Name:  "sink-sslmode",
			Usage: "Postgres sslmode (disable, require, verify-full)",
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Total connection attempts before falling back",
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Pause between connection attempts (e.g. 2s)",
		},
	}
}

// archiveFlags returns the artifact store flags shared by run, serve,
// and report.
func archiveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "archive-backend",
			Usage: "Artifact backend: fs, s3, memory, none",
		},
		&cli.StringFlag{
			Name:  "archive-path",
			Usage: "Artifact root directory for the fs backend",
		},
	}
}

// logLevelFlag returns the logging verbosity flag.
func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
	}
}

// joinFlags concatenates flag groups into one slice.
func joinFlags(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, group := range groups {
		flags = append(flags, group...)
	}
	return flags
}

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// TUIReadOnlyFlags returns flags for commands that support TUI mode.
// This is an alias for ReadOnlyFlags, kept for documentation clarity.
func TUIReadOnlyFlags() []cli.Flag {
	return ReadOnlyFlags()
}

// ServerFlags returns the flags for commands that query the control API.
func ServerFlags() []cli.Flag {
	return append(ReadOnlyFlags(), ServerFlag)
}
