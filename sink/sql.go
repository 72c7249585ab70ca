package sink

import (
	"context"
	"database/sql"
	"sync"

	"github.com/sbs27/salespipe/log"
	"github.com/sbs27/salespipe/types"
)

// Conn is a live database connection bound to one dialect. Obtain one
// through Connect; the zero value is not usable.
type Conn struct {
	db        *sql.DB
	dialect   dialect
	batchSize int
	log       *log.Logger

	mu     sync.Mutex
	closed bool
}

var _ Sink = (*Conn)(nil)

// EnsureSchema creates the sales table if it does not already exist.
// The DDL is idempotent, so running it on every pipeline run is safe.
func (c *Conn) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, c.dialect.CreateTableDDL()); err != nil {
		return newError(ErrSchema, "ensure_schema", err)
	}
	return nil
}

// InsertBatch loads every record inside a single transaction. Statements
// are chunked to at most batchSize rows each, but a failure in any chunk
// rolls back the whole transaction: the table ends up with all records
// or none of them.
func (c *Conn) InsertBatch(ctx context.Context, records []types.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, newError(ErrInsert, "begin", err)
	}

	for start := 0; start < len(records); start += c.batchSize {
		end := start + c.batchSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		args := make([]any, 0, len(chunk)*len(insertColumns))
		for _, rec := range chunk {
			args = append(args,
				rec.Date,
				rec.Product,
				int64(rec.Amount),
				rec.Quantity,
				int64(rec.Total),
				rec.Category,
				int64(rec.EstimatedMarginPct),
				rec.ProcessedAt,
			)
		}

		if _, err := tx.ExecContext(ctx, c.dialect.InsertStatement(len(chunk)), args...); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				c.log.Warn("rollback failed", map[string]any{"error": rbErr.Error()})
			}
			return 0, newError(ErrInsert, "insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, newError(ErrInsert, "commit", err)
	}
	return len(records), nil
}

// Close releases the database handle. Idempotent and nil-safe so it can
// sit in a defer next to error paths that may already have closed it.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.db == nil {
		return nil
	}
	c.closed = true
	return c.db.Close()
}
