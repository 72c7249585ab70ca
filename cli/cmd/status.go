package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/sbs27/salespipe/cli/client"
	"github.com/sbs27/salespipe/cli/render"
	"github.com/sbs27/salespipe/cli/tui"
	"github.com/sbs27/salespipe/sched"
)

// StatusCommand returns the status command, which queries a running
// serve process over its control API.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show scheduler state and the last run's report",
		Flags:  ServerFlags(),
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cl := client.New(c.String("server"))
	status, err := cl.Status(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), exitRun)
	}

	if c.Bool("tui") {
		// The TUI re-polls on its own timer, so it gets a fetch seam
		// rather than a one-shot snapshot.
		feed := &tui.StatusFeed{
			Initial: status,
			Fetch: func() (*sched.Status, error) {
				return cl.Status(c.Context)
			},
		}
		return r.RenderTUI("status", feed)
	}

	return r.Render(status)
}
