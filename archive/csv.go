package archive

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/sbs27/salespipe/types"
)

// FallbackFilename is the sidecar name for the unreachable-sink artifact.
const FallbackFilename = "fallback.csv"

var csvHeader = []string{
	"date", "product", "amount", "quantity",
	"total", "category", "margin_pct", "processed_at",
}

// EncodeCSV renders enriched records as CSV. The header is a superset of
// the ingest format and money fields are decimal strings, so a fallback
// file can be re-extracted once the database is back: the extractor
// ignores the extra columns.
func EncodeCSV(records []types.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := []string{
			rec.Date,
			rec.Product,
			rec.Amount.String(),
			strconv.FormatInt(rec.Quantity, 10),
			rec.Total.String(),
			rec.Category,
			strconv.Itoa(rec.EstimatedMarginPct),
			rec.ProcessedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
