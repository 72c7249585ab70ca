package client

import (
	"context"
	"time"

	"github.com/sbs27/salespipe/metrics"
	"github.com/sbs27/salespipe/sched"
	"github.com/sbs27/salespipe/types"
)

// Stub returns shape-correct canned responses for tests and offline
// rendering. Leave a field nil to get the default payload; set Err to
// make every call fail.
type Stub struct {
	HealthInfo   *HealthInfo
	StatusInfo   *sched.Status
	ScheduleInfo *ScheduleInfo
	MetricsInfo  *metrics.Snapshot
	TriggerInfo  *TriggerResult
	Err          error

	HealthCalls   int
	StatusCalls   int
	ScheduleCalls int
	MetricsCalls  int
	RunNowCalls   int
}

var _ Client = (*Stub)(nil)

func (s *Stub) Health(ctx context.Context) (*HealthInfo, error) {
	s.HealthCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	if s.HealthInfo != nil {
		return s.HealthInfo, nil
	}
	return &HealthInfo{
		Status:  "ok",
		Version: types.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (s *Stub) Status(ctx context.Context) (*sched.Status, error) {
	s.StatusCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	if s.StatusInfo != nil {
		return s.StatusInfo, nil
	}
	last := time.Now().Add(-time.Minute)
	next := last.Add(5 * time.Minute)
	return &sched.Status{
		IsRunning:       false,
		IntervalSeconds: 300,
		LastRunAt:       &last,
		LastOutcome:     types.OutcomeSuccess.String(),
		NextRunAt:       &next,
		LastReport: &types.RunReport{
			RunID:            "stub-run-001",
			Source:           "sales_csv",
			RecordsExtracted: 3,
			RecordsInserted:  3,
			Summary: types.Summary{
				TotalRevenue:   103000,
				AverageSale:    34333,
				UniqueProducts: 3,
				TopProduct:     "Laptop",
			},
			StartedAt:  last,
			FinishedAt: last.Add(2 * time.Second),
			DurationMs: 2000,
			Outcome:    types.OutcomeSuccess,
		},
	}, nil
}

func (s *Stub) Schedule(ctx context.Context) (*ScheduleInfo, error) {
	s.ScheduleCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	if s.ScheduleInfo != nil {
		return s.ScheduleInfo, nil
	}
	last := time.Now().Add(-time.Minute)
	next := last.Add(5 * time.Minute)
	return &ScheduleInfo{
		Interval:        "5m0s",
		IntervalSeconds: 300,
		LastRunAt:       &last,
		NextRunAt:       &next,
		IsRunning:       false,
	}, nil
}

func (s *Stub) Metrics(ctx context.Context) (*metrics.Snapshot, error) {
	s.MetricsCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	if s.MetricsInfo != nil {
		return s.MetricsInfo, nil
	}
	return &metrics.Snapshot{
		RunsStarted:      1,
		RunsSucceeded:    1,
		RecordsExtracted: 3,
		RecordsInserted:  3,
		ConnectAttempts:  1,
		SinkDriver:       "postgres",
		StorageBackend:   "fs",
	}, nil
}

func (s *Stub) RunNow(ctx context.Context) (*TriggerResult, error) {
	s.RunNowCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	if s.TriggerInfo != nil {
		return s.TriggerInfo, nil
	}
	return &TriggerResult{Triggered: true, Message: "run started"}, nil
}
