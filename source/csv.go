package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sbs27/salespipe/iox"
	"github.com/sbs27/salespipe/types"
)

// DateLayout is the calendar date format of the input's date column.
const DateLayout = "2006-01-02"

// CSV extracts records from a comma-separated file.
// Header matching is case-insensitive and order-independent.
type CSV struct {
	Path string
}

// NewCSV creates a CSV source for the given path.
func NewCSV(path string) *CSV {
	return &CSV{Path: path}
}

// Extract implements Source. The whole set is rejected on the first bad
// cell; per-row recovery is deliberately not attempted here.
func (s *CSV) Extract(ctx context.Context) ([]types.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, newError(ErrMissing, s.Path, err)
	}
	defer iox.DiscardClose(f)

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, newError(ErrEmpty, s.Path, nil)
	}
	if err != nil {
		return nil, newError(ErrValue, s.Path, err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, newError(ErrColumns, s.Path, err)
	}

	var records []types.RawRecord
	for rowNum := 1; ; rowNum++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newError(ErrValue, s.Path, fmt.Errorf("row %d: %w", rowNum, err))
		}

		rec, err := parseRow(row, idx)
		if err != nil {
			return nil, newError(ErrValue, s.Path, fmt.Errorf("row %d: %w", rowNum, err))
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, newError(ErrEmpty, s.Path, nil)
	}
	return records, nil
}

// columnIndex maps required column names to their positions in header.
// Reports every missing column, not just the first.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(RequiredColumns))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func parseRow(row []string, idx map[string]int) (types.RawRecord, error) {
	var rec types.RawRecord

	get := func(col string) (string, error) {
		i := idx[col]
		if i >= len(row) {
			return "", fmt.Errorf("column %q absent", col)
		}
		return strings.TrimSpace(row[i]), nil
	}

	date, err := get("date")
	if err != nil {
		return rec, err
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return rec, fmt.Errorf("column %q: %q is not a calendar date", "date", date)
	}
	rec.Date = date

	product, err := get("product")
	if err != nil {
		return rec, err
	}
	if product == "" {
		return rec, errors.New(`column "product": empty`)
	}
	rec.Product = product

	amountText, err := get("amount")
	if err != nil {
		return rec, err
	}
	amount, err := types.ParseCents(amountText)
	if err != nil {
		return rec, fmt.Errorf("column %q: %w", "amount", err)
	}
	if amount < 0 {
		return rec, fmt.Errorf("column %q: negative amount %s", "amount", amount)
	}
	rec.Amount = amount

	qtyText, err := get("quantity")
	if err != nil {
		return rec, err
	}
	qty, err := strconv.ParseInt(qtyText, 10, 64)
	if err != nil {
		return rec, fmt.Errorf("column %q: %q is not an integer", "quantity", qtyText)
	}
	if qty < 0 {
		return rec, fmt.Errorf("column %q: negative quantity %d", "quantity", qty)
	}
	rec.Quantity = qty

	return rec, nil
}

// Verify CSV implements Source.
var _ Source = (*CSV)(nil)
