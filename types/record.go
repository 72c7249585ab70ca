// Package types defines the shared data structures of the sales pipeline:
// raw and enriched records, run reports, and snapshot frame payloads.
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cents is a monetary amount in integer cents.
// All pipeline arithmetic happens on this type so totals are exact;
// decimal rendering occurs only at I/O edges (SQL parameters, artifacts).
type Cents int64

// ParseCents parses decimal money text ("1000", "19.99") into cents.
// At most two fractional digits are accepted.
func ParseCents(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two fractional digits", s)
	}
	// Both parts must be bare digits. ParseInt alone would admit a second
	// sign ("1.-5") and silently corrupt the amount.
	if !allDigits(whole) || !allDigits(frac) {
		return 0, fmt.Errorf("amount %q is not a decimal number", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not a decimal number", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not a decimal number", s)
	}

	c := Cents(w*100 + f)
	if neg {
		c = -c
	}
	return c, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String renders the amount as a two-decimal string ("1030.00").
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts both number and string forms.
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseCents(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// RawRecord is one validated input row. All four fields are required;
// a record set missing any column is rejected wholesale at extraction.
type RawRecord struct {
	Date     string `json:"date" msgpack:"date"`
	Product  string `json:"product" msgpack:"product"`
	Amount   Cents  `json:"amount" msgpack:"amount"`
	Quantity int64  `json:"quantity" msgpack:"quantity"`
}

// Record is an enriched record: the raw fields plus derived ones.
// Immutable once produced; owned by the run that produced it.
type Record struct {
	RawRecord `msgpack:",inline"`

	Total              Cents     `json:"total" msgpack:"total"`
	Category           string    `json:"category" msgpack:"category"`
	EstimatedMarginPct int       `json:"estimated_margin_pct" msgpack:"estimated_margin_pct"`
	ProcessedAt        time.Time `json:"processed_at" msgpack:"processed_at"`
}

// CategoryStats aggregates one category inside a run summary.
type CategoryStats struct {
	Total    Cents `json:"total" msgpack:"total"`
	Quantity int64 `json:"quantity" msgpack:"quantity"`
	Count    int   `json:"count" msgpack:"count"`
}

// Summary holds the derived aggregates of one record set.
type Summary struct {
	TotalRevenue      Cents                    `json:"total_revenue" msgpack:"total_revenue"`
	AverageSale       Cents                    `json:"average_sale" msgpack:"average_sale"`
	UniqueProducts    int                      `json:"unique_products" msgpack:"unique_products"`
	TopProduct        string                   `json:"top_product,omitempty" msgpack:"top_product,omitempty"`
	CategoryBreakdown map[string]CategoryStats `json:"category_breakdown" msgpack:"category_breakdown"`
}
