// Package runtime orchestrates a single pipeline run end to end:
// extract, enrich, load into the sink, persist artifacts, notify.
//
// Execute is the single interpreter of lower-layer errors into the
// three-way run outcome: success (loaded), partial_failure (sink
// unreachable, fallback artifact written), failure (nothing durable).
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/sbs27/salespipe/adapter"
	"github.com/sbs27/salespipe/archive"
	"github.com/sbs27/salespipe/log"
	"github.com/sbs27/salespipe/metrics"
	"github.com/sbs27/salespipe/sink"
	"github.com/sbs27/salespipe/source"
	"github.com/sbs27/salespipe/transform"
	"github.com/sbs27/salespipe/types"
)

// DefaultSource is the partition key used when no source name is configured.
const DefaultSource = "sales_csv"

// notifyTimeout bounds best-effort adapter publishes after a run.
const notifyTimeout = 30 * time.Second

// Connector opens a sink connection. Used for test injection.
type Connector func(ctx context.Context, cfg sink.Config, logger *log.Logger) (sink.Sink, error)

// Config configures a single run.
type Config struct {
	// CSVPath is the input file read when Extractor is nil.
	CSVPath string
	// Source is the partition key naming the origin feed (default "sales_csv").
	Source string
	// Sink holds the database connection settings.
	Sink sink.Config
	// RunMeta is the run identity.
	RunMeta types.RunMeta

	// Extractor overrides CSV extraction (for testing).
	Extractor source.Source
	// Connector overrides sink.Connect (for testing).
	// If nil, sink.Connect is used.
	Connector Connector
	// Archive receives run artifacts. If nil, artifact persistence is
	// skipped entirely; a connect failure then has nowhere to preserve
	// data and degrades to failure.
	Archive *archive.Archive
	// Adapters receives the run-completed event. May be nil.
	Adapters adapter.Adapter
	// Collector is the metrics collector for this run.
	// If nil, no metrics are recorded (all Collector methods are nil-safe).
	Collector *metrics.Collector
	// Now overrides the clock (for testing). If nil, uses time.Now.
	Now func() time.Time
}

// Orchestrator drives a single run. Single-use; create one per run.
type Orchestrator struct {
	config    *Config
	logger    *log.Logger
	startTime time.Time
}

// New creates a run orchestrator.
// Returns an error if run metadata is invalid.
func New(config *Config, logger *log.Logger) (*Orchestrator, error) {
	if err := config.RunMeta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run metadata: %w", err)
	}
	if config.Source == "" {
		config.Source = DefaultSource
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Orchestrator{
		config: config,
		logger: logger.WithRun(config.RunMeta),
	}, nil
}

// Execute runs the pipeline end-to-end and always returns a report.
//
// Execution flow:
//  1. Extract records (row validation happens at the source)
//  2. Enrich and summarize
//  3. Connect to the sink (bounded linear retry inside sink.Connect)
//  4. Ensure schema, insert everything in one transaction
//  5. Persist artifacts and notify adapters (best effort)
//
// A connect failure takes the fallback branch instead of steps 4-5: the
// transformed set is preserved as a CSV artifact and the run ends in
// partial_failure. Every other stage error ends the run in failure.
// The sink connection is released exactly once on every path.
func (o *Orchestrator) Execute(ctx context.Context) *types.RunReport {
	o.startTime = o.config.Now()
	o.config.Collector.IncRunStarted()

	o.logger.Info("starting run", map[string]any{
		"source":  o.config.Source,
		"trigger": string(o.config.RunMeta.Trigger),
		"input":   o.config.CSVPath,
	})

	// Extract
	raw, err := o.extractor().Extract(ctx)
	if err != nil {
		o.logger.Error("extraction failed", map[string]any{
			"error": err.Error(),
			"input": o.config.CSVPath,
		})
		return o.finish(ctx, nil, o.buildReport(0, 0, types.Summary{}, types.OutcomeFailure, "",
			fmt.Sprintf("extract: %v", err)))
	}
	o.config.Collector.AddRecordsExtracted(int64(len(raw)))
	o.logger.Info("records extracted", map[string]any{"count": len(raw)})

	// Transform
	records, err := transform.Enrich(raw, o.config.Now())
	if err != nil {
		o.logger.Error("enrichment failed", map[string]any{"error": err.Error()})
		return o.finish(ctx, nil, o.buildReport(len(raw), 0, types.Summary{}, types.OutcomeFailure, "",
			fmt.Sprintf("transform: %v", err)))
	}
	summary := transform.Summarize(records)
	o.logger.Info("records enriched", map[string]any{
		"count":         len(records),
		"total_revenue": summary.TotalRevenue.String(),
	})

	// Connect
	o.config.Collector.IncConnectAttempt()
	conn, err := o.connect(ctx)
	if err != nil {
		o.config.Collector.IncConnectFailure()
		return o.fallback(ctx, records, summary, err)
	}

	// Cleanup runs exactly once on every remaining path.
	// Close errors are logged and swallowed, never propagated.
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			o.logger.Warn("sink close failed", map[string]any{"error": cerr.Error()})
		}
	}()

	// EnsureSchema
	if err := conn.EnsureSchema(ctx); err != nil {
		o.logger.Error("schema setup failed", map[string]any{"error": err.Error()})
		return o.finish(ctx, records, o.buildReport(len(raw), 0, summary, types.OutcomeFailure, "",
			fmt.Sprintf("schema: %v", err)))
	}

	// Insert
	inserted, err := conn.InsertBatch(ctx, records)
	if err != nil {
		o.logger.Error("insert failed", map[string]any{
			"error": err.Error(),
			"count": len(records),
		})
		return o.finish(ctx, records, o.buildReport(len(raw), 0, summary, types.OutcomeFailure, "",
			fmt.Sprintf("insert: %v", err)))
	}
	o.config.Collector.AddRecordsInserted(int64(inserted))
	o.logger.Info("records inserted", map[string]any{"count": inserted})

	return o.finish(ctx, records, o.buildReport(len(raw), inserted, summary, types.OutcomeSuccess, "", ""))
}

// extractor returns the configured record source.
func (o *Orchestrator) extractor() source.Source {
	if o.config.Extractor != nil {
		return o.config.Extractor
	}
	return source.NewCSV(o.config.CSVPath)
}

// connect opens the sink connection through the configured seam.
func (o *Orchestrator) connect(ctx context.Context) (sink.Sink, error) {
	if o.config.Connector != nil {
		return o.config.Connector(ctx, o.config.Sink, o.logger)
	}
	conn, err := sink.Connect(ctx, o.config.Sink, o.logger)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// fallback preserves the transformed record set as a CSV artifact after
// the sink proved unreachable. A successful write ends the run in
// partial_failure; a failed write means the data survives nowhere and
// the run degrades to failure.
func (o *Orchestrator) fallback(ctx context.Context, records []types.Record, summary types.Summary, connectErr error) *types.RunReport {
	o.logger.Warn("sink unreachable, preserving records to fallback artifact", map[string]any{
		"error": connectErr.Error(),
		"count": len(records),
	})

	ra := o.runArchive()
	if ra == nil {
		o.logger.Error("no archive configured, records lost", nil)
		return o.finish(ctx, records, o.buildReport(len(records), 0, summary, types.OutcomeFailure, "",
			fmt.Sprintf("sink unreachable and no archive configured: %v", connectErr)))
	}

	data, err := archive.EncodeCSV(records)
	if err != nil {
		o.logger.Error("fallback encode failed", map[string]any{"error": err.Error()})
		return o.finish(ctx, records, o.buildReport(len(records), 0, summary, types.OutcomeFailure, "",
			fmt.Sprintf("sink unreachable and fallback encode failed: %v", err)))
	}

	path, err := ra.PutFile(ctx, archive.FallbackFilename, data)
	if err != nil {
		o.config.Collector.IncArchiveWriteFailure()
		o.logger.Error("fallback write failed, records lost", map[string]any{"error": err.Error()})
		return o.finish(ctx, records, o.buildReport(len(records), 0, summary, types.OutcomeFailure, "",
			fmt.Sprintf("sink unreachable and fallback write failed: %v", err)))
	}
	o.config.Collector.IncArchiveWriteSuccess()
	o.config.Collector.AddArchiveBytes(int64(len(data)))
	o.config.Collector.AddRecordsFallback(int64(len(records)))

	o.logger.Info("fallback artifact written", map[string]any{
		"path":  path,
		"count": len(records),
	})

	return o.finish(ctx, records, o.buildReport(len(records), 0, summary, types.OutcomePartialFailure, path, ""))
}

// finish is the common tail of every execution path: persist artifacts
// (best effort), record outcome metrics, notify adapters, log completion.
// Never changes the report's outcome.
func (o *Orchestrator) finish(ctx context.Context, records []types.Record, report *types.RunReport) *types.RunReport {
	if ra := o.runArchive(); ra != nil {
		if report.Outcome == types.OutcomeSuccess {
			report.ArtifactPaths = o.saveDataArtifacts(ctx, ra, records, report)
		}
		o.saveReportArtifacts(ctx, ra, report)
	}

	switch report.Outcome {
	case types.OutcomeSuccess:
		o.config.Collector.IncRunSucceeded()
	case types.OutcomePartialFailure:
		o.config.Collector.IncRunPartial()
	case types.OutcomeFailure:
		o.config.Collector.IncRunFailed()
	}

	o.notify(ctx, report)

	o.logger.Info("run completed", map[string]any{
		"outcome":   report.Outcome.String(),
		"extracted": report.RecordsExtracted,
		"inserted":  report.RecordsInserted,
		"duration":  time.Duration(report.DurationMs) * time.Millisecond,
	})

	return report
}

// notify publishes the run-completed event to the configured adapters.
// Failures are logged only.
func (o *Orchestrator) notify(ctx context.Context, report *types.RunReport) {
	if o.config.Adapters == nil {
		return
	}

	// Keep context values but ignore parent cancellation so completion
	// events still go out when the caller is shutting down.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	event := adapter.NewEvent(o.config.RunMeta, report)
	if err := o.config.Adapters.Publish(publishCtx, event); err != nil {
		o.config.Collector.IncNotifyFailure()
		o.logger.Warn("notification failed (best effort)", map[string]any{"error": err.Error()})
		return
	}
	o.config.Collector.IncNotifySuccess()
}

// runArchive binds this run's partition keys. Returns nil when no
// archive is configured.
func (o *Orchestrator) runArchive() *archive.RunArchive {
	if o.config.Archive == nil {
		return nil
	}
	return o.config.Archive.ForRun(o.config.Source, o.startTime, o.config.RunMeta.RunID)
}

// buildReport constructs the final run report.
func (o *Orchestrator) buildReport(extracted, inserted int, summary types.Summary, outcome types.Outcome, fallbackPath, errMsg string) *types.RunReport {
	finished := o.config.Now()
	return &types.RunReport{
		RunID:            o.config.RunMeta.RunID,
		Source:           o.config.Source,
		RecordsExtracted: extracted,
		RecordsInserted:  inserted,
		Summary:          summary,
		StartedAt:        o.startTime,
		FinishedAt:       finished,
		DurationMs:       finished.Sub(o.startTime).Milliseconds(),
		Outcome:          outcome,
		FallbackPath:     fallbackPath,
		Error:            errMsg,
	}
}
