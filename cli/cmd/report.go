package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sbs27/salespipe/cli/render"
	"github.com/sbs27/salespipe/types"
)

// ReportCommand returns the report command, which reads the most
// recent run report from the artifact archive.
func ReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Show the latest archived run report",
		Flags: joinFlags(
			[]cli.Flag{
				ConfigFlag,
				&cli.StringFlag{
					Name:  "source",
					Usage: "Filter by source partition",
				},
			},
			archiveFlags(),
			ReadOnlyFlags(),
		),
		Action: reportAction,
	}
}

func reportAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	backend := resolveString(c, "archive-backend", cfg.Archive.Backend)
	if err := validateBackend(backend); err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	arch, err := buildArchive(c, cfg, backend)
	if err != nil {
		return cli.Exit(fmt.Sprintf("archive setup failed: %v", err), exitUsage)
	}
	if arch == nil {
		return cli.Exit("no archive configured; set archive.backend or --archive-backend", exitUsage)
	}

	// An empty source filter matches every source.
	record, err := arch.LatestReport(c.Context, c.String("source"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("read report: %v", err), exitRun)
	}

	if c.Bool("tui") {
		return r.RenderTUI("report", reportFromRecord(record))
	}
	return r.Render(record)
}

// reportFromRecord rebuilds a RunReport from its dataset form for the
// TUI view. JSONL round-trips numbers loosely, so numeric fields
// coerce from whatever the codec produced. The category breakdown is
// not stored in dataset records and stays empty.
func reportFromRecord(record map[string]any) *types.RunReport {
	report := &types.RunReport{
		RunID:            recordString(record, "run_id"),
		Source:           recordString(record, "source"),
		RecordsExtracted: int(recordInt64(record, "records_extracted")),
		RecordsInserted:  int(recordInt64(record, "records_inserted")),
		DurationMs:       recordInt64(record, "duration_ms"),
		FallbackPath:     recordString(record, "fallback_path"),
		Error:            recordString(record, "error"),
		Summary: types.Summary{
			TotalRevenue:   types.Cents(recordInt64(record, "total_revenue")),
			AverageSale:    types.Cents(recordInt64(record, "average_sale")),
			UniqueProducts: int(recordInt64(record, "unique_products")),
			TopProduct:     recordString(record, "top_product"),
		},
	}

	switch recordString(record, "outcome") {
	case types.OutcomePartialFailure.String():
		report.Outcome = types.OutcomePartialFailure
	case types.OutcomeFailure.String():
		report.Outcome = types.OutcomeFailure
	}

	if t, err := time.Parse(time.RFC3339Nano, recordString(record, "started_at")); err == nil {
		report.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, recordString(record, "finished_at")); err == nil {
		report.FinishedAt = t
	}
	return report
}

func recordString(record map[string]any, key string) string {
	s, _ := record[key].(string)
	return s
}

func recordInt64(record map[string]any, key string) int64 {
	switch v := record[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}
