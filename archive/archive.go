// Package archive persists run artifacts to Lode-backed storage.
//
// Two write shapes share one store: enriched records and run reports go
// through a Hive-partitioned JSONL dataset, while sidecar files (the
// fallback CSV, binary snapshots, rendered reports) land at deterministic
// paths under the same partition prefix. Filesystem, S3, and in-memory
// backends are selected by configuration.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/sbs27/salespipe/types"
)

// Storage backends selectable via Config.Backend.
const (
	BackendFS     = "fs"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// DefaultDataset is the dataset ID when configuration leaves it empty.
const DefaultDataset = "salespipe"

// partitionKeys is the Hive layout: every dataset record carries these.
var partitionKeys = []string{"source", "day", "run_id", "kind"}

// DeriveDay computes the partition day from the run start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startedAt time.Time) string {
	return startedAt.UTC().Format("2006-01-02")
}

// Config holds archive storage configuration.
type Config struct {
	// Backend is one of fs, s3, memory.
	Backend string
	// Path is the root directory for the fs backend, or "bucket/prefix"
	// for the s3 backend.
	Path string
	// Dataset is the Lode dataset ID. Defaults to DefaultDataset.
	Dataset string
	// S3 carries backend-specific settings when Backend is s3.
	S3 S3Config
}

func (c Config) dataset() string {
	if c.Dataset == "" {
		return DefaultDataset
	}
	return c.Dataset
}

// Archive is a long-lived handle on artifact storage. It is safe for use
// across runs; bind per-run partition keys with ForRun.
type Archive struct {
	dataset lode.Dataset
	factory lode.StoreFactory
	name    string

	storeOnce sync.Once
	store     lode.Store
	storeErr  error
}

// New creates an Archive for the configured backend.
func New(cfg Config) (*Archive, error) {
	switch cfg.Backend {
	case BackendFS:
		if cfg.Path == "" {
			return nil, wrapInitError(fmt.Errorf("fs backend requires a path"), cfg.dataset())
		}
		return NewWithFactory(cfg, lode.NewFSFactory(cfg.Path))
	case BackendMemory:
		return NewWithFactory(cfg, lode.NewMemoryFactory())
	case BackendS3:
		factory, err := s3Factory(cfg)
		if err != nil {
			return nil, err
		}
		return NewWithFactory(cfg, factory)
	default:
		return nil, wrapInitError(fmt.Errorf("unknown backend %q", cfg.Backend), cfg.dataset())
	}
}

// NewWithFactory creates an Archive over a custom store factory.
// Use lode.NewMemoryFactory() or a shared memory store for testing.
func NewWithFactory(cfg Config, factory lode.StoreFactory) (*Archive, error) {
	ds, err := lode.NewDataset(
		lode.DatasetID(cfg.dataset()),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, wrapInitError(err, cfg.dataset())
	}
	return &Archive{dataset: ds, factory: factory, name: cfg.dataset()}, nil
}

// getOrCreateStore lazily initializes the sidecar-file Store. The dataset
// and sidecar files share the factory so both land in the same backend.
func (a *Archive) getOrCreateStore() (lode.Store, error) {
	a.storeOnce.Do(func() {
		a.store, a.storeErr = a.factory()
	})
	return a.store, a.storeErr
}

// ForRun binds the partition keys of one pipeline run.
func (a *Archive) ForRun(source string, startedAt time.Time, runID string) *RunArchive {
	return &RunArchive{
		archive: a,
		source:  source,
		day:     DeriveDay(startedAt),
		runID:   runID,
	}
}

// RunArchive writes artifacts under a single run's partition.
type RunArchive struct {
	archive *Archive
	source  string
	day     string
	runID   string
}

// WriteRecords appends the enriched records to the dataset as JSONL.
func (r *RunArchive) WriteRecords(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, r.toRecordMap(rec))
	}
	_, err := r.archive.dataset.Write(ctx, rows, lode.Metadata{})
	return wrapWriteError(err, r.partitionPath())
}

// WriteReport appends a single run-report record to the dataset so past
// runs can be queried without touching the database.
func (r *RunArchive) WriteReport(ctx context.Context, report *types.RunReport) error {
	_, err := r.archive.dataset.Write(ctx, []any{r.toReportMap(report)}, lode.Metadata{})
	return wrapWriteError(err, r.partitionPath())
}

// PutFile writes a sidecar file under the run's files/ prefix, bypassing
// dataset segment machinery. The filename must be a bare name: no path
// separators, no "..". Returns the full storage path written.
func (r *RunArchive) PutFile(ctx context.Context, filename string, data []byte) (string, error) {
	if err := validateFilename(filename); err != nil {
		return "", wrapWriteError(err, filename)
	}
	store, err := r.archive.getOrCreateStore()
	if err != nil {
		return "", wrapInitError(err, r.archive.name)
	}
	path := r.filePath(filename)
	if err := store.Put(ctx, path, bytes.NewReader(data)); err != nil {
		return "", wrapWriteError(err, path)
	}
	return path, nil
}

// GetFile reads a sidecar file back by its bare filename.
func (r *RunArchive) GetFile(ctx context.Context, filename string) ([]byte, error) {
	if err := validateFilename(filename); err != nil {
		return nil, wrapReadError(err, filename)
	}
	store, err := r.archive.getOrCreateStore()
	if err != nil {
		return nil, wrapInitError(err, r.archive.name)
	}
	path := r.filePath(filename)
	rc, err := store.Get(ctx, path)
	if err != nil {
		return nil, wrapReadError(err, path)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, wrapReadError(err, path)
	}
	return buf.Bytes(), nil
}

// filePath computes the Hive-partitioned path for a sidecar file.
// Format: datasets/<dataset>/partitions/source=<s>/day=<d>/run_id=<r>/files/<filename>
func (r *RunArchive) filePath(filename string) string {
	return fmt.Sprintf("datasets/%s/partitions/source=%s/day=%s/run_id=%s/files/%s",
		r.archive.name, r.source, r.day, r.runID, filename)
}

func (r *RunArchive) partitionPath() string {
	return fmt.Sprintf("%s/source=%s/day=%s/run_id=%s", r.archive.name, r.source, r.day, r.runID)
}

func validateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("empty filename")
	}
	if strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return fmt.Errorf("filename %q must not contain path separators or ..", filename)
	}
	return nil
}
