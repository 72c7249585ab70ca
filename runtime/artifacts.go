package runtime

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/sbs27/salespipe/archive"
	"github.com/sbs27/salespipe/snapshot"
	"github.com/sbs27/salespipe/types"
)

// Secondary artifact filenames under the run's partition path.
const (
	ReportJSONFilename = "report.json"
	ReportTextFilename = "report.txt"
)

// saveDataArtifacts persists the processed record set: JSONL dataset rows
// plus a binary snapshot. Best effort; failures are logged and counted,
// never propagated. Returns the paths of the file artifacts written.
func (o *Orchestrator) saveDataArtifacts(ctx context.Context, ra *archive.RunArchive, records []types.Record, report *types.RunReport) []string {
	var paths []string

	if err := ra.WriteRecords(ctx, records); err != nil {
		o.config.Collector.IncArchiveWriteFailure()
		o.logger.Warn("processed dataset write failed (best effort)", map[string]any{"error": err.Error()})
	} else {
		o.config.Collector.IncArchiveWriteSuccess()
		o.logger.Debug("processed dataset written", map[string]any{"count": len(records)})
	}

	var buf bytes.Buffer
	opts := snapshot.EncodeOptions{
		RunID:     report.RunID,
		Source:    report.Source,
		CreatedAt: report.FinishedAt,
	}
	if err := snapshot.Encode(&buf, opts, records); err != nil {
		o.config.Collector.IncArchiveWriteFailure()
		o.logger.Warn("snapshot encode failed (best effort)", map[string]any{"error": err.Error()})
		return paths
	}
	if path := o.putFile(ctx, ra, snapshot.Filename, buf.Bytes()); path != "" {
		paths = append(paths, path)
	}

	return paths
}

// saveReportArtifacts persists the run report: a dataset row for queries,
// a human-readable text rendering, and the JSON document. Each written
// file path is appended to report.ArtifactPaths. Best effort.
func (o *Orchestrator) saveReportArtifacts(ctx context.Context, ra *archive.RunArchive, report *types.RunReport) {
	if err := ra.WriteReport(ctx, report); err != nil {
		o.config.Collector.IncArchiveWriteFailure()
		o.logger.Warn("report dataset write failed (best effort)", map[string]any{"error": err.Error()})
	} else {
		o.config.Collector.IncArchiveWriteSuccess()
	}

	if path := o.putFile(ctx, ra, ReportTextFilename, []byte(RenderText(report))); path != "" {
		report.ArtifactPaths = append(report.ArtifactPaths, path)
	}

	// The JSON document carries every sibling path written before it.
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		o.logger.Warn("report marshal failed (best effort)", map[string]any{"error": err.Error()})
		return
	}
	data = append(data, '\n')
	if path := o.putFile(ctx, ra, ReportJSONFilename, data); path != "" {
		report.ArtifactPaths = append(report.ArtifactPaths, path)
	}
}

// putFile writes one file artifact, counting bytes and outcomes.
// Returns "" on failure.
func (o *Orchestrator) putFile(ctx context.Context, ra *archive.RunArchive, filename string, data []byte) string {
	path, err := ra.PutFile(ctx, filename, data)
	if err != nil {
		o.config.Collector.IncArchiveWriteFailure()
		o.logger.Warn("artifact write failed (best effort)", map[string]any{
			"artifact": filename,
			"error":    err.Error(),
		})
		return ""
	}
	o.config.Collector.IncArchiveWriteSuccess()
	o.config.Collector.AddArchiveBytes(int64(len(data)))
	o.logger.Debug("artifact written", map[string]any{
		"artifact": filename,
		"path":     path,
		"bytes":    len(data),
	})
	return path
}
