package archive

import "github.com/sbs27/salespipe/types"

// Record kind discriminator values. Every dataset record carries one in
// its kind field, which doubles as a partition key.
const (
	KindRecord = "record"
	KindReport = "report"
)

// toRecordMap converts an enriched record to dataset form. Lode's
// HiveLayout requires records as map[string]any with all partition keys
// present. Money fields are stored as integer cents.
func (r *RunArchive) toRecordMap(rec types.Record) map[string]any {
	return map[string]any{
		"kind":         KindRecord,
		"date":         rec.Date,
		"product":      rec.Product,
		"amount":       int64(rec.Amount),
		"quantity":     rec.Quantity,
		"total":        int64(rec.Total),
		"category":     rec.Category,
		"margin_pct":   rec.EstimatedMarginPct,
		"processed_at": rec.ProcessedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),

		// Partition keys
		"source": r.source,
		"day":    r.day,
		"run_id": r.runID,
	}
}

// toReportMap converts a run report to dataset form.
func (r *RunArchive) toReportMap(report *types.RunReport) map[string]any {
	m := map[string]any{
		"kind":              KindReport,
		"records_extracted": report.RecordsExtracted,
		"records_inserted":  report.RecordsInserted,
		"total_revenue":     int64(report.Summary.TotalRevenue),
		"average_sale":      int64(report.Summary.AverageSale),
		"unique_products":   report.Summary.UniqueProducts,
		"top_product":       report.Summary.TopProduct,
		"outcome":           report.Outcome.String(),
		"started_at":        report.StartedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
		"finished_at":       report.FinishedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
		"duration_ms":       report.DurationMs,

		// Partition keys
		"source": r.source,
		"day":    r.day,
		"run_id": r.runID,
	}
	if report.FallbackPath != "" {
		m["fallback_path"] = report.FallbackPath
	}
	if report.Error != "" {
		m["error"] = report.Error
	}
	return m
}
