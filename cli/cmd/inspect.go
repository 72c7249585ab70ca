package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sbs27/salespipe/cli/render"
	"github.com/sbs27/salespipe/cli/tui"
	"github.com/sbs27/salespipe/snapshot"
)

// InspectCommand returns the inspect command with subcommands.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect a run artifact",
		Subcommands: []*cli.Command{
			inspectSnapshotCommand(),
		},
	}
}

func inspectSnapshotCommand() *cli.Command {
	return &cli.Command{
		Name:      "snapshot",
		Usage:     "Decode a binary snapshot artifact",
		ArgsUsage: "<path>",
		Flags:     TUIReadOnlyFlags(),
		Action:    inspectSnapshotAction,
	}
}

// snapshotSummary is the non-TUI render shape for inspect snapshot.
type snapshotSummary struct {
	Path          string `json:"path"`
	FormatVersion string `json:"format_version"`
	RunID         string `json:"run_id"`
	Source        string `json:"source"`
	RecordCount   int    `json:"record_count"`
	BatchCount    int    `json:"batch_count"`
	CreatedAt     string `json:"created_at"`
}

func inspectSnapshotAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("snapshot path required", exitUsage)
	}
	path := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open snapshot: %v", err), exitRun)
	}
	defer func() { _ = f.Close() }()

	header, records, err := snapshot.Decode(f)
	if err != nil {
		return cli.Exit(fmt.Sprintf("decode snapshot: %v", err), exitRun)
	}

	if c.Bool("tui") {
		return r.RenderTUI("snapshot", &tui.SnapshotView{
			Path:    path,
			Header:  header,
			Records: records,
		})
	}

	return r.Render(snapshotSummary{
		Path:          path,
		FormatVersion: header.FormatVersion,
		RunID:         header.RunID,
		Source:        header.Source,
		RecordCount:   header.RecordCount,
		BatchCount:    header.BatchCount,
		CreatedAt:     header.CreatedAt,
	})
}
