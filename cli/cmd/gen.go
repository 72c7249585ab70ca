package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sbs27/salespipe/source"
)

// GenCommand returns the gen command, which writes a sample sales CSV
// for demos and local testing.
func GenCommand() *cli.Command {
	return &cli.Command{
		Name:  "gen",
		Usage: "Generate a sample sales CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output path (- for stdout)",
				Value:   "-",
			},
			&cli.IntFlag{
				Name:  "rows",
				Usage: "Number of data rows",
				Value: 50,
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Random seed for reproducible output",
			},
			&cli.StringFlag{
				Name:  "start",
				Usage: "Date of the first row (YYYY-MM-DD); rows advance one day each",
			},
			&cli.IntFlag{
				Name:  "corrupt",
				Usage: "Append this many rows with unparseable amounts",
			},
		},
		Action: genAction,
	}
}

func genAction(c *cli.Context) error {
	opts := source.GenOptions{
		Rows:        c.Int("rows"),
		Seed:        c.Uint64("seed"),
		CorruptRows: c.Int("corrupt"),
	}
	if s := c.String("start"); s != "" {
		day, err := time.Parse("2006-01-02", s)
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid start date %q (want YYYY-MM-DD)", s), exitUsage)
		}
		opts.StartDay = day
	}

	out := c.String("out")
	if out == "" || out == "-" {
		if err := source.WriteSampleCSV(c.App.Writer, opts); err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}
		return nil
	}

	f, err := os.Create(out)
	if err != nil {
		return cli.Exit(fmt.Sprintf("create %s: %v", out, err), exitRun)
	}
	if err := source.WriteSampleCSV(f, opts); err != nil {
		_ = f.Close()
		return cli.Exit(err.Error(), exitUsage)
	}
	if err := f.Close(); err != nil {
		return cli.Exit(fmt.Sprintf("close %s: %v", out, err), exitRun)
	}

	fmt.Fprintf(c.App.Writer, "wrote %d rows to %s\n", opts.Rows+opts.CorruptRows, out)
	return nil
}
