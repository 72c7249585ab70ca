package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// GenOptions configures sample data generation.
type GenOptions struct {
	// Rows is the number of data rows to produce.
	Rows int
	// Seed makes output reproducible; 0 seeds from crypto/rand.
	Seed uint64
	// StartDay is the date of the first row; rows advance one day each.
	StartDay time.Time
	// CorruptRows appends rows with unparseable amounts, to demonstrate
	// wholesale rejection of a bad record set.
	CorruptRows int
}

// sampleProducts mixes names that hit each category keyword with
// generic ones that land in the default bucket.
var sampleProducts = []string{
	"Laptop Pro 15",
	"Ultrawide Monitor",
	"Tablet Air",
	"Mechanical Keyboard",
	"Wireless Mouse",
	"Noise-Cancelling Headphones",
	"Laser Printer",
	"Flatbed Scanner",
	"USB-C Dock",
	"Desk Lamp",
}

// WriteSampleCSV writes a generated sales file to w.
func WriteSampleCSV(w io.Writer, opts GenOptions) error {
	if opts.Rows <= 0 {
		return fmt.Errorf("rows must be positive, got %d", opts.Rows)
	}
	if opts.StartDay.IsZero() {
		opts.StartDay = time.Now().UTC()
	}

	faker := gofakeit.New(opts.Seed)

	cw := csv.NewWriter(w)
	if err := cw.Write(RequiredColumns); err != nil {
		return err
	}

	day := opts.StartDay
	for i := 0; i < opts.Rows; i++ {
		product := sampleProducts[faker.Number(0, len(sampleProducts)-1)]
		if faker.Number(0, 4) == 0 {
			product = faker.ProductName()
		}

		row := []string{
			day.Format(DateLayout),
			product,
			strconv.FormatFloat(faker.Price(5, 2500), 'f', 2, 64),
			strconv.Itoa(faker.Number(1, 12)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
		day = day.AddDate(0, 0, 1)
	}

	for i := 0; i < opts.CorruptRows; i++ {
		row := []string{
			day.Format(DateLayout),
			faker.ProductName(),
			"not-a-number",
			strconv.Itoa(faker.Number(1, 12)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
		day = day.AddDate(0, 0, 1)
	}

	cw.Flush()
	return cw.Error()
}
