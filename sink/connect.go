package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sbs27/salespipe/log"
)

// Test seams. Production code always goes through Connect, which binds
// the real driver registry and clock.
type (
	openFunc  func(driver, dsn string) (*sql.DB, error)
	sleepFunc func(time.Duration)
)

// Connect opens the configured database and verifies it is reachable.
// The handle is opened once; reachability is probed up to cfg.MaxRetries
// times with a fixed cfg.RetryDelay pause between consecutive attempts.
// Exhausting every attempt returns an error classified ErrConnectivity so
// the caller can take the fallback path instead of losing the batch.
func Connect(ctx context.Context, cfg Config, logger *log.Logger) (*Conn, error) {
	return connect(ctx, cfg, logger, sql.Open, time.Sleep)
}

func connect(ctx context.Context, cfg Config, logger *log.Logger, open openFunc, sleep sleepFunc) (*Conn, error) {
	cfg = cfg.withDefaults()

	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, newError(ErrConnectivity, "connect", err)
	}

	// sql.Open validates the DSN without dialing, so a failure here is
	// a configuration problem retrying cannot cure.
	db, err := open(d.Name(), d.DSN(cfg))
	if err != nil {
		return nil, newError(ErrConnectivity, "connect", err)
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = db.PingContext(ctx)
		if lastErr == nil {
			logger.Info("database connected", map[string]any{
				"driver":   cfg.Driver,
				"host":     cfg.Host,
				"database": cfg.Database,
				"attempt":  attempt,
			})
			return &Conn{db: db, dialect: d, batchSize: cfg.BatchSize, log: logger}, nil
		}
		logger.Warn(fmt.Sprintf("connection attempt %d/%d failed", attempt, cfg.MaxRetries), map[string]any{
			"driver": cfg.Driver,
			"host":   cfg.Host,
			"error":  lastErr.Error(),
		})
		if attempt < cfg.MaxRetries {
			sleep(cfg.RetryDelay)
		}
	}

	// Exhausted. Release the handle before reporting so the fallback
	// path starts clean.
	if closeErr := db.Close(); closeErr != nil {
		logger.Warn("closing unreachable database handle failed", map[string]any{
			"error": closeErr.Error(),
		})
	}
	return nil, newError(ErrConnectivity, "connect",
		fmt.Errorf("after %d attempts: %w", cfg.MaxRetries, lastErr))
}
