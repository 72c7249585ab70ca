// Package metrics provides pipeline metrics collection.
//
// The Collector accumulates counters across runs of one process. It is a
// leaf package with no internal dependencies; run outcomes are recorded
// through explicit increment methods so this package never imports the
// types package.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all collected metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after
// creation. Field tags match the /metrics endpoint payload.
type Snapshot struct {
	// Run lifecycle
	RunsStarted      int64 `json:"runs_started"`
	RunsSucceeded    int64 `json:"runs_succeeded"`
	RunsPartial      int64 `json:"runs_partial"`
	RunsFailed       int64 `json:"runs_failed"`
	TriggersRejected int64 `json:"triggers_rejected"`

	// Pipeline
	RecordsExtracted int64 `json:"records_extracted"`
	RecordsInserted  int64 `json:"records_inserted"`
	RecordsFallback  int64 `json:"records_fallback"`

	// Sink
	ConnectAttempts int64 `json:"connect_attempts"`
	ConnectFailures int64 `json:"connect_failures"`

	// Archive
	ArchiveWriteSuccess int64 `json:"archive_write_success"`
	ArchiveWriteFailure int64 `json:"archive_write_failure"`
	ArchiveBytes        int64 `json:"archive_bytes"`

	// Adapters
	NotifySuccess int64 `json:"notify_success"`
	NotifyFailure int64 `json:"notify_failure"`

	// Dimensions (informational, set at construction)
	SinkDriver     string `json:"sink_driver"`
	StorageBackend string `json:"storage_backend"`
}

// Collector accumulates metrics for the lifetime of a process.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	// Run lifecycle
	runsStarted      int64
	runsSucceeded    int64
	runsPartial      int64
	runsFailed       int64
	triggersRejected int64

	// Pipeline
	recordsExtracted int64
	recordsInserted  int64
	recordsFallback  int64

	// Sink
	connectAttempts int64
	connectFailures int64

	// Archive
	archiveWriteSuccess int64
	archiveWriteFailure int64
	archiveBytes        int64

	// Adapters
	notifySuccess int64
	notifyFailure int64

	// Dimensions
	sinkDriver     string
	storageBackend string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(sinkDriver, storageBackend string) *Collector {
	return &Collector{
		sinkDriver:     sinkDriver,
		storageBackend: storageBackend,
	}
}

// --- Run lifecycle ---

// IncRunStarted records a run start.
func (c *Collector) IncRunStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsStarted++
	c.mu.Unlock()
}

// IncRunSucceeded records a run that loaded its records into the sink.
func (c *Collector) IncRunSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsSucceeded++
	c.mu.Unlock()
}

// IncRunPartial records a run that fell back to local persistence.
func (c *Collector) IncRunPartial() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsPartial++
	c.mu.Unlock()
}

// IncRunFailed records a run that produced nothing durable.
func (c *Collector) IncRunFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsFailed++
	c.mu.Unlock()
}

// IncTriggerRejected records a manual trigger refused because a run
// was already in flight.
func (c *Collector) IncTriggerRejected() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.triggersRejected++
	c.mu.Unlock()
}

// --- Pipeline ---

// AddRecordsExtracted records how many rows one extraction produced.
func (c *Collector) AddRecordsExtracted(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsExtracted += n
	c.mu.Unlock()
}

// AddRecordsInserted records how many rows one batch insert committed.
func (c *Collector) AddRecordsInserted(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsInserted += n
	c.mu.Unlock()
}

// AddRecordsFallback records how many rows were preserved in a
// fallback artifact.
func (c *Collector) AddRecordsFallback(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsFallback += n
	c.mu.Unlock()
}

// --- Sink ---

// IncConnectAttempt records one connection attempt (including retries).
func (c *Collector) IncConnectAttempt() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.connectAttempts++
	c.mu.Unlock()
}

// IncConnectFailure records an exhausted connect (all retries failed).
func (c *Collector) IncConnectFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.connectFailures++
	c.mu.Unlock()
}

// --- Archive ---
// Archive counters are per-call, not per-record. A single Put with N
// records counts as 1 success.

// IncArchiveWriteSuccess records a successful archive write.
func (c *Collector) IncArchiveWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.archiveWriteSuccess++
	c.mu.Unlock()
}

// IncArchiveWriteFailure records a failed archive write.
func (c *Collector) IncArchiveWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.archiveWriteFailure++
	c.mu.Unlock()
}

// AddArchiveBytes records payload bytes handed to the archive.
func (c *Collector) AddArchiveBytes(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.archiveBytes += n
	c.mu.Unlock()
}

// --- Adapters ---

// IncNotifySuccess records a delivered run-completed notification.
func (c *Collector) IncNotifySuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.notifySuccess++
	c.mu.Unlock()
}

// IncNotifyFailure records an undeliverable run-completed notification.
func (c *Collector) IncNotifyFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.notifyFailure++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		RunsStarted:      c.runsStarted,
		RunsSucceeded:    c.runsSucceeded,
		RunsPartial:      c.runsPartial,
		RunsFailed:       c.runsFailed,
		TriggersRejected: c.triggersRejected,

		RecordsExtracted: c.recordsExtracted,
		RecordsInserted:  c.recordsInserted,
		RecordsFallback:  c.recordsFallback,

		ConnectAttempts: c.connectAttempts,
		ConnectFailures: c.connectFailures,

		ArchiveWriteSuccess: c.archiveWriteSuccess,
		ArchiveWriteFailure: c.archiveWriteFailure,
		ArchiveBytes:        c.archiveBytes,

		NotifySuccess: c.notifySuccess,
		NotifyFailure: c.notifyFailure,

		SinkDriver:     c.sinkDriver,
		StorageBackend: c.storageBackend,
	}
}
