package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoReports is returned when no run-report records exist in the dataset.
var ErrNoReports = errors.New("no run reports found")

// LatestReport finds and reads the most recent run-report record,
// optionally filtered by source. Snapshots are ordered by creation time,
// so the scan walks newest-first.
func (a *Archive) LatestReport(ctx context.Context, source string) (map[string]any, error) {
	snapshots, err := a.dataset.Snapshots(ctx)
	if err != nil {
		return nil, wrapReadError(err, a.name+"/snapshots")
	}

	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]

		if !snapshotMatchesPartition(snap, "kind", KindReport) {
			continue
		}
		if !snapshotMatchesPartition(snap, "source", source) {
			continue
		}

		data, err := a.dataset.Read(ctx, snap.ID)
		if err != nil {
			return nil, wrapReadError(err, fmt.Sprintf("%s/snapshot/%s", a.name, snap.ID))
		}

		// Partition-path filtering is a coarse pre-filter; record fields
		// are authoritative.
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if record["kind"] != KindReport {
				continue
			}
			if source != "" && asString(record["source"]) != source {
				continue
			}
			return record, nil
		}
	}

	return nil, ErrNoReports
}

// snapshotMatchesPartition checks whether any file path in the snapshot
// manifest carries the given partition key=value segment. An empty value
// matches everything.
func snapshotMatchesPartition(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks for an exact key=value path segment.
// Exact segment matching avoids substring false positives (run_id=run-1
// must not match run_id=run-10).
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
