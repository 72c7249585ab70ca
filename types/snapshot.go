package types

// SnapshotFormatVersion is the wire version of the snapshot artifact.
// Bump on any incompatible change to the frame payloads below.
const SnapshotFormatVersion = "1.0.0"

// Snapshot frame type discriminants.
const (
	// SnapshotFrameHeader is the first frame of every snapshot.
	SnapshotFrameHeader = "header"
	// SnapshotFrameBatch carries a batch of enriched records.
	SnapshotFrameBatch = "batch"
)

// SnapshotHeader is the first frame of a snapshot artifact.
// All fields use msgpack tags; the header describes the whole file so a
// reader can show run facts without decoding every batch.
type SnapshotHeader struct {
	// Type is the frame discriminator, always SnapshotFrameHeader.
	Type string `msgpack:"type"`
	// FormatVersion is the snapshot wire version.
	FormatVersion string `msgpack:"format_version"`
	// RunID is the run that produced this snapshot.
	RunID string `msgpack:"run_id"`
	// Source is the input the records came from.
	Source string `msgpack:"source"`
	// RecordCount is the total record count across all batches.
	RecordCount int `msgpack:"record_count"`
	// BatchCount is the number of batch frames that follow.
	BatchCount int `msgpack:"batch_count"`
	// CreatedAt is the snapshot creation time in RFC 3339 UTC.
	CreatedAt string `msgpack:"created_at"`
}

// SnapshotBatch is one batch frame of a snapshot artifact.
type SnapshotBatch struct {
	// Type is the frame discriminator, always SnapshotFrameBatch.
	Type string `msgpack:"type"`
	// Seq is the batch ordinal, starts at 1.
	Seq int `msgpack:"seq"`
	// Records is the batch payload.
	Records []Record `msgpack:"records"`
}
