package source

import (
	"context"

	"github.com/sbs27/salespipe/types"
)

// Required input columns. Extra columns are ignored; absence of any of
// these is a hard extraction failure.
var RequiredColumns = []string{"date", "product", "amount", "quantity"}

// Source abstracts record extraction.
// Real implementations read files; stubs are used for orchestrator tests.
type Source interface {
	// Extract reads the full record set, ordered as in the input.
	// Failures are classified *Error values; Extract never panics
	// across this boundary.
	Extract(ctx context.Context) ([]types.RawRecord, error)
}

// Stub is a test source that returns canned records or a canned error.
type Stub struct {
	Records []types.RawRecord
	Err     error

	// Calls counts Extract invocations.
	Calls int
}

// Extract implements Source.
func (s *Stub) Extract(ctx context.Context) ([]types.RawRecord, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Records, nil
}

// Verify Stub implements Source.
var _ Source = (*Stub)(nil)
