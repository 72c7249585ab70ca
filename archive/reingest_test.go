package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbs27/salespipe/source"
)

// A fallback file must survive a round trip back through the extractor,
// since re-running the pipeline against it is the recovery story.
func TestFallbackCSVReingests(t *testing.T) {
	data, err := EncodeCSV(enrichedRecords())
	if err != nil {
		t.Fatalf("EncodeCSV() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "fallback.csv")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	raw, err := source.NewCSV(path).Extract(context.Background())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("len(raw) = %d, want 2", len(raw))
	}
	if raw[0].Product != "Laptop" || raw[0].Amount != 100000 || raw[0].Quantity != 2 {
		t.Errorf("raw[0] = %+v, want Laptop/100000/2", raw[0])
	}
}
