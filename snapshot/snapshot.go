package snapshot

import (
	"fmt"
	"io"
	"time"

	"github.com/sbs27/salespipe/types"
)

// DefaultBatchSize is the record count per batch frame when the caller
// does not choose one.
const DefaultBatchSize = 1000

// Filename is the sidecar name for the snapshot artifact.
const Filename = "snapshot.bin"

// EncodeOptions identify the run a snapshot belongs to.
type EncodeOptions struct {
	RunID     string
	Source    string
	CreatedAt time.Time
	// BatchSize caps records per batch frame. Zero means DefaultBatchSize.
	BatchSize int
}

// Encode writes a complete snapshot stream: one header frame describing
// the run, then batch frames of at most BatchSize records each.
func Encode(w io.Writer, opts EncodeOptions, records []types.Record) error {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	batchCount := (len(records) + batchSize - 1) / batchSize
	header := types.SnapshotHeader{
		Type:          types.SnapshotFrameHeader,
		FormatVersion: types.SnapshotFormatVersion,
		RunID:         opts.RunID,
		Source:        opts.Source,
		RecordCount:   len(records),
		BatchCount:    batchCount,
		CreatedAt:     opts.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	enc := NewFrameEncoder(w)
	if err := enc.WriteFrame(&header); err != nil {
		return err
	}

	seq := 0
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		seq++
		batch := types.SnapshotBatch{
			Type:    types.SnapshotFrameBatch,
			Seq:     seq,
			Records: records[start:end],
		}
		if err := enc.WriteFrame(&batch); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a complete snapshot stream back. It verifies the frame
// order (header first, batch seqs contiguous from 1) and that the header
// counts match what the stream actually carries.
func Decode(r io.Reader) (*types.SnapshotHeader, []types.Record, error) {
	dec := NewFrameDecoder(r)

	payload, err := dec.ReadFrame()
	if err != nil {
		if err == io.EOF {
			return nil, nil, &FrameError{Kind: FrameErrorPartial, Msg: "empty snapshot stream"}
		}
		return nil, nil, err
	}
	first, err := DecodeFrame(payload)
	if err != nil {
		return nil, nil, err
	}
	header, ok := first.(*types.SnapshotHeader)
	if !ok {
		return nil, nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "snapshot stream does not start with a header frame",
		}
	}
	if header.FormatVersion != types.SnapshotFormatVersion {
		return nil, nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg: fmt.Sprintf("snapshot format version %q not supported (want %s)",
				header.FormatVersion, types.SnapshotFormatVersion),
		}
	}

	records := make([]types.Record, 0, header.RecordCount)
	batches := 0
	for {
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		frame, err := DecodeFrame(payload)
		if err != nil {
			return nil, nil, err
		}
		batch, ok := frame.(*types.SnapshotBatch)
		if !ok {
			return nil, nil, &FrameError{
				Kind: FrameErrorDecode,
				Msg:  "unexpected second header frame",
			}
		}
		batches++
		if batch.Seq != batches {
			return nil, nil, &FrameError{
				Kind: FrameErrorDecode,
				Msg:  fmt.Sprintf("batch seq %d out of order (want %d)", batch.Seq, batches),
			}
		}
		records = append(records, batch.Records...)
	}

	if batches != header.BatchCount {
		return nil, nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  fmt.Sprintf("stream carries %d batches, header promised %d", batches, header.BatchCount),
		}
	}
	if len(records) != header.RecordCount {
		return nil, nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  fmt.Sprintf("stream carries %d records, header promised %d", len(records), header.RecordCount),
		}
	}
	return header, records, nil
}
