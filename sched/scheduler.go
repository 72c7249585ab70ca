// Package sched drives recurring and on-demand pipeline runs.
//
// The Scheduler owns the only concurrency in the process: a polling
// loop plus zero-or-one in-flight run goroutine, coordinated through a
// mutex-guarded check-and-set on the isRunning flag. A manual trigger
// never blocks its caller and never queues; whoever holds the flag
// runs, everyone else is told "already running".
package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sbs27/salespipe/log"
	"github.com/sbs27/salespipe/metrics"
	"github.com/sbs27/salespipe/types"
)

// pollInterval is how often the timer loop re-checks whether a
// scheduled run is due. Sub-second so short intervals fire promptly.
const pollInterval = 250 * time.Millisecond

// Runner executes one pipeline run and returns its report.
// The scheduler records any returned report as the last completed run.
type Runner func(ctx context.Context, trigger types.Trigger) *types.RunReport

// Config configures a Scheduler.
type Config struct {
	// Interval is the gap between scheduled runs. Must be positive.
	Interval time.Duration

	// Runner executes one pipeline run. Required.
	Runner Runner

	// Collector records trigger metrics. Optional.
	Collector *metrics.Collector

	// Now is the clock used for interval accounting. Defaults to time.Now.
	Now func() time.Time
}

var (
	// ErrNoRunner is returned by New when Config.Runner is nil.
	ErrNoRunner = errors.New("invalid scheduler config: Runner is required")
	// ErrNoInterval is returned by New when Config.Interval is not positive.
	ErrNoInterval = errors.New("invalid scheduler config: Interval must be positive")
)

// Status is a point-in-time snapshot of scheduler state.
// It doubles as the /status response body.
type Status struct {
	IsRunning bool `json:"is_running"`

	// IntervalSeconds is the configured gap between scheduled runs.
	IntervalSeconds float64 `json:"interval_seconds"`

	// LastRunAt is when the last run completed. Nil until one has.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// LastOutcome is the outcome word of the last completed run.
	LastOutcome string `json:"last_outcome,omitempty"`

	// NextRunAt is when the timer path next fires. Nil means a run is
	// due as soon as the loop polls (nothing has run yet).
	NextRunAt *time.Time `json:"next_run_at,omitempty"`

	// LastReport is the full report of the last completed run.
	LastReport *types.RunReport `json:"last_report,omitempty"`
}

// Scheduler runs the pipeline every Config.Interval and on demand.
//
// Thread safety:
//   - mu guards the run state (isRunning, lastRunAt, lastOutcome,
//     lastReport) and the stopped flag
//   - the isRunning check-and-set is atomic under mu, so two triggers
//     racing each other can never start two runs
//   - wg tracks the polling loop and the in-flight run goroutine;
//     Stop waits on it, so there is no unjoined work after shutdown
type Scheduler struct {
	config Config
	logger *log.Logger

	// runCtx carries the values runs execute under. It is never
	// canceled: an in-flight run always goes to completion.
	runCtx context.Context

	mu          sync.Mutex // guards run state below and stopped
	isRunning   bool
	lastRunAt   time.Time
	lastOutcome string
	lastReport  *types.RunReport

	wg sync.WaitGroup

	// stopCh signals the polling loop to stop.
	stopCh chan struct{}
	// stopped indicates Stop has been called. Guarded by mu.
	stopped bool
}

// New creates a Scheduler. The polling loop does not start until Start.
func New(config Config, logger *log.Logger) (*Scheduler, error) {
	if config.Runner == nil {
		return nil, ErrNoRunner
	}
	if config.Interval <= 0 {
		return nil, ErrNoInterval
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Scheduler{
		config: config,
		logger: logger.WithComponent("scheduler"),
		runCtx: context.Background(),
		stopCh: make(chan struct{}),
	}, nil
}

// Start launches the polling loop. Runs inherit the context's values
// but not its cancellation; canceling ctx stops the loop from firing
// new runs while any in-flight run goes to completion.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.runCtx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("scheduler started", map[string]any{
		"interval": s.config.Interval.String(),
	})

	s.wg.Add(1)
	go s.pollLoop(ctx)
}

// Stop halts the polling loop, refuses new triggers, and waits for any
// in-flight run to finish. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopCh)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// TriggerNow starts a run immediately unless one is already in flight.
// It never blocks: on true the run executes in a background goroutine
// and the caller gets the acknowledgement, not the result.
func (s *Scheduler) TriggerNow() bool {
	s.mu.Lock()
	if s.isRunning || s.stopped {
		reason := "already running"
		if s.stopped {
			reason = "scheduler stopped"
		}
		s.mu.Unlock()

		s.config.Collector.IncTriggerRejected()
		s.logger.Warn("manual trigger rejected", map[string]any{
			"reason": reason,
		})
		return false
	}
	s.isRunning = true
	ctx := s.runCtx
	s.mu.Unlock()

	s.launch(ctx, types.TriggerManual)
	return true
}

// Status returns a read-only snapshot of scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		IsRunning:       s.isRunning,
		IntervalSeconds: s.config.Interval.Seconds(),
		LastOutcome:     s.lastOutcome,
		LastReport:      s.lastReport,
	}
	if !s.lastRunAt.IsZero() {
		last := s.lastRunAt
		next := s.lastRunAt.Add(s.config.Interval)
		st.LastRunAt = &last
		st.NextRunAt = &next
	}
	return st
}

// pollLoop fires scheduled runs. Every tick it checks elapsed time
// since the last completed run against the interval; a zero lastRunAt
// makes the first tick fire immediately.
func (s *Scheduler) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.maybeRunScheduled()
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// maybeRunScheduled performs the timer path's check-and-set. A run in
// flight is skipped, not queued; the slot is claimed under the same
// lock that reads the elapsed time.
func (s *Scheduler) maybeRunScheduled() {
	s.mu.Lock()
	due := !s.isRunning && !s.stopped &&
		s.config.Now().Sub(s.lastRunAt) >= s.config.Interval
	if due {
		s.isRunning = true
	}
	ctx := s.runCtx
	s.mu.Unlock()

	if due {
		s.launch(ctx, types.TriggerSchedule)
	}
}

// launch executes one run in a background goroutine. The caller must
// already hold the run slot. The slot is released via defer, so a
// panicking runner still frees it and still counts as ran for interval
// accounting; only a normal return records an outcome.
func (s *Scheduler) launch(ctx context.Context, trigger types.Trigger) {
	s.logger.Info("run triggered", map[string]any{
		"trigger": string(trigger),
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		var report *types.RunReport
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("run panicked", map[string]any{
					"trigger": string(trigger),
					"panic":   fmt.Sprint(r),
				})
			}
			s.finish(report)
		}()

		report = s.config.Runner(ctx, trigger)
	}()
}

// finish records the completed run and frees the run slot. A nil
// report (panicked runner) advances lastRunAt so the timer path does
// not refire every poll, but records no outcome.
func (s *Scheduler) finish(report *types.RunReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isRunning = false
	s.lastRunAt = s.config.Now()
	if report != nil {
		s.lastOutcome = report.Outcome.String()
		s.lastReport = report
	}
}
