package transform

import "github.com/sbs27/salespipe/types"

// Summarize aggregates enriched records into the run summary that ships
// with every report. Revenue totals are exact cent arithmetic; the
// average sale uses integer division and truncates toward zero.
func Summarize(records []types.Record) types.Summary {
	summary := types.Summary{
		CategoryBreakdown: make(map[string]types.CategoryStats),
	}
	if len(records) == 0 {
		return summary
	}

	byProduct := make(map[string]types.Cents)
	for _, rec := range records {
		summary.TotalRevenue += rec.Total
		byProduct[rec.Product] += rec.Total

		stats := summary.CategoryBreakdown[rec.Category]
		stats.Total += rec.Total
		stats.Quantity += rec.Quantity
		stats.Count++
		summary.CategoryBreakdown[rec.Category] = stats
	}

	summary.AverageSale = summary.TotalRevenue / types.Cents(len(records))
	summary.UniqueProducts = len(byProduct)

	// Ties on revenue resolve to the lexicographically smaller name so
	// the report is stable across runs.
	for product, total := range byProduct {
		switch {
		case summary.TopProduct == "":
			summary.TopProduct = product
		case total > byProduct[summary.TopProduct]:
			summary.TopProduct = product
		case total == byProduct[summary.TopProduct] && product < summary.TopProduct:
			summary.TopProduct = product
		}
	}
	return summary
}
