package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sbs27/salespipe/types"
)

// RenderText renders the run report as a human-readable summary.
// Written alongside the JSON report and printed by the status command.
func RenderText(report *types.RunReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "SALES PIPELINE RUN %s\n", strings.ToUpper(report.Outcome.String()))
	fmt.Fprintf(&sb, "run_id:    %s\n", report.RunID)
	fmt.Fprintf(&sb, "source:    %s\n", report.Source)
	fmt.Fprintf(&sb, "started:   %s\n", report.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "finished:  %s\n", report.FinishedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "duration:  %s\n", time.Duration(report.DurationMs)*time.Millisecond)
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "records extracted: %d\n", report.RecordsExtracted)
	fmt.Fprintf(&sb, "records inserted:  %d\n", report.RecordsInserted)

	if report.RecordsExtracted > 0 {
		s := report.Summary
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "total revenue:   %s\n", s.TotalRevenue)
		// Average is cents truncated toward zero, so average*count can
		// undershoot total revenue by up to count-1 cents.
		fmt.Fprintf(&sb, "average sale:    %s\n", s.AverageSale)
		fmt.Fprintf(&sb, "unique products: %d\n", s.UniqueProducts)
		fmt.Fprintf(&sb, "top product:     %s\n", s.TopProduct)

		if len(s.CategoryBreakdown) > 0 {
			sb.WriteString("\nby category:\n")
			categories := make([]string, 0, len(s.CategoryBreakdown))
			for category := range s.CategoryBreakdown {
				categories = append(categories, category)
			}
			sort.Strings(categories)
			for _, category := range categories {
				stats := s.CategoryBreakdown[category]
				fmt.Fprintf(&sb, "  %-18s %12s  (qty %d, %d records)\n",
					category, stats.Total.String(), stats.Quantity, stats.Count)
			}
		}
	}

	if report.FallbackPath != "" {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "fallback artifact: %s\n", report.FallbackPath)
	}
	if report.Error != "" {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "error: %s\n", report.Error)
	}

	return sb.String()
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *types.RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		return writeRunReportTo(report, os.Stderr)
	}

	var buf strings.Builder
	if err := writeRunReportTo(report, &buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeRunReportTo writes report JSON to any writer.
func writeRunReportTo(report *types.RunReport, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
