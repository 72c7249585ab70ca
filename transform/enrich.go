// Package transform enriches validated sales records with derived fields
// and aggregates them into run summaries. All functions are pure: they
// never mutate their inputs and carry no state between calls.
package transform

import (
	"errors"
	"time"

	"github.com/sbs27/salespipe/types"
)

// ErrNoRecords is returned when enrichment receives an empty input set.
// An empty extract is a pipeline failure, not a quiet no-op.
var ErrNoRecords = errors.New("transform: no records to enrich")

// Enrich derives the computed fields for each record: total sale value,
// product category, estimated margin, and the processing timestamp. The
// same timestamp is stamped on every record of a call so a run's output
// is internally consistent.
func Enrich(records []types.RawRecord, now time.Time) ([]types.Record, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	out := make([]types.Record, 0, len(records))
	for _, raw := range records {
		category := Categorize(raw.Product)
		out = append(out, types.Record{
			RawRecord:          raw,
			Total:              raw.Amount * types.Cents(raw.Quantity),
			Category:           category,
			EstimatedMarginPct: MarginPct(category),
			ProcessedAt:        now,
		})
	}
	return out, nil
}
