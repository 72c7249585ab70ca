// Package adapter defines the notification boundary for finished runs.
//
// Adapters publish run completion events to downstream systems. The
// runtime owns adapter lifecycle; users provide configuration only.
// Publish failures never change a run's outcome.
package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/sbs27/salespipe/types"
)

// EventTypeRunCompleted is the event_type value on every published event.
const EventTypeRunCompleted = "run_completed"

// RunCompletedEvent is the payload published when a pipeline run finishes.
type RunCompletedEvent struct {
	Version          string      `json:"version"`
	EventType        string      `json:"event_type"` // always "run_completed"
	RunID            string      `json:"run_id"`
	Trigger          string      `json:"trigger"`
	Source           string      `json:"source"`
	Day              string      `json:"day"`
	Outcome          string      `json:"outcome"`
	RecordsExtracted int         `json:"records_extracted"`
	RecordsInserted  int         `json:"records_inserted"`
	TotalRevenue     types.Cents `json:"total_revenue"`
	FallbackPath     string      `json:"fallback_path,omitempty"`
	DurationMs       int64       `json:"duration_ms"`
	Timestamp        string      `json:"timestamp"` // ISO 8601 finish time
}

// NewEvent builds the completion event for a finished run.
func NewEvent(meta types.RunMeta, report *types.RunReport) *RunCompletedEvent {
	return &RunCompletedEvent{
		Version:          types.Version,
		EventType:        EventTypeRunCompleted,
		RunID:            report.RunID,
		Trigger:          string(meta.Trigger),
		Source:           report.Source,
		Day:              report.StartedAt.UTC().Format("2006-01-02"),
		Outcome:          report.Outcome.String(),
		RecordsExtracted: report.RecordsExtracted,
		RecordsInserted:  report.RecordsInserted,
		TotalRevenue:     report.Summary.TotalRevenue,
		FallbackPath:     report.FallbackPath,
		DurationMs:       report.DurationMs,
		Timestamp:        report.FinishedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Retry schedule shared by the transport adapters: exponential from
// 500ms, capped so a slow downstream cannot stall run teardown.
const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 5 * time.Second
)

// RetryDelay returns the pause before retry attempt n (n >= 1).
func RetryDelay(n int) time.Duration {
	d := retryBaseDelay << uint(n-1)
	if d <= 0 || d > retryMaxDelay {
		return retryMaxDelay
	}
	return d
}

// Adapter publishes run completion events to a downstream system.
// Implementations must be safe for reuse across runs.
type Adapter interface {
	// Publish sends a run completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *RunCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Multi publishes to every configured adapter. A failing adapter does not
// stop the others; all failures come back joined.
type Multi []Adapter

var _ Adapter = (Multi)(nil)

// Publish delivers the event to each adapter in order.
func (m Multi) Publish(ctx context.Context, event *RunCompletedEvent) error {
	var errs []error
	for _, a := range m {
		if err := a.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes each adapter, keeping every error encountered.
func (m Multi) Close() error {
	var errs []error
	for _, a := range m {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stub records published events for tests.
type Stub struct {
	PublishErr error
	Events     []*RunCompletedEvent
	Closed     bool
}

var _ Adapter = (*Stub)(nil)

func (s *Stub) Publish(ctx context.Context, event *RunCompletedEvent) error {
	if s.PublishErr != nil {
		return s.PublishErr
	}
	s.Events = append(s.Events, event)
	return nil
}

func (s *Stub) Close() error {
	s.Closed = true
	return nil
}
