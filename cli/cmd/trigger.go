package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/sbs27/salespipe/cli/client"
	"github.com/sbs27/salespipe/cli/render"
)

// TriggerCommand returns the trigger command, the CLI path to the
// server's /run-now endpoint.
func TriggerCommand() *cli.Command {
	return &cli.Command{
		Name:   "trigger",
		Usage:  "Ask a running server to start a pipeline run now",
		Flags:  ServerFlags(),
		Action: triggerAction,
	}
}

func triggerAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for trigger", exitUsage)
	}

	result, err := client.New(c.String("server")).RunNow(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), exitRun)
	}

	if err := r.Render(result); err != nil {
		return err
	}
	if !result.Triggered {
		// A refused trigger (run already in flight) is a normal server
		// response; the exit code lets scripts branch on it.
		return cli.Exit("", exitRun)
	}
	return nil
}
