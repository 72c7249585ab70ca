// Package sink loads enriched sales records into a relational database.
//
// The package owns connection establishment with bounded retry, dialect
// differences between the supported drivers, idempotent schema setup, and
// the all-or-nothing insert transaction. Callers hold the Sink interface;
// Conn is the production implementation.
package sink

import (
	"context"
	"time"

	"github.com/sbs27/salespipe/types"
)

// Config carries everything needed to reach and load the destination
// database. It is populated from the pipeline configuration file.
type Config struct {
	Driver   string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// BatchSize caps the number of rows per INSERT statement. All
	// statements still run inside a single transaction.
	BatchSize int

	// MaxRetries is the total number of connection attempts.
	MaxRetries int

	// RetryDelay is the fixed pause between consecutive attempts.
	RetryDelay time.Duration
}

// withDefaults fills unset tuning knobs. Zero attempts would mean never
// trying at all, so the floor is one.
func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	return c
}

// Sink is the destination contract used by the pipeline runtime.
type Sink interface {
	// EnsureSchema creates the sales table if it does not exist.
	EnsureSchema(ctx context.Context) error

	// InsertBatch loads all records in one transaction and returns the
	// number of rows inserted. On error nothing is inserted.
	InsertBatch(ctx context.Context, records []types.Record) (int, error)

	// Close releases the underlying handle. Safe to call more than once.
	Close() error
}

// Stub is a test double for Sink.
type Stub struct {
	SchemaErr error
	InsertErr error
	CloseErr  error

	SchemaCalls int
	InsertCalls int
	CloseCalls  int
	Inserted    []types.Record
}

var _ Sink = (*Stub)(nil)

func (s *Stub) EnsureSchema(ctx context.Context) error {
	s.SchemaCalls++
	return s.SchemaErr
}

func (s *Stub) InsertBatch(ctx context.Context, records []types.Record) (int, error) {
	s.InsertCalls++
	if s.InsertErr != nil {
		return 0, s.InsertErr
	}
	s.Inserted = append(s.Inserted, records...)
	return len(records), nil
}

func (s *Stub) Close() error {
	s.CloseCalls++
	return s.CloseErr
}
