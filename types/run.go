package types

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Trigger identifies what started a pipeline run.
type Trigger string

const (
	// TriggerCLI marks a one-shot run started from the command line.
	TriggerCLI Trigger = "cli"
	// TriggerSchedule marks a run fired by the interval timer.
	TriggerSchedule Trigger = "schedule"
	// TriggerManual marks a run started through the control API.
	TriggerManual Trigger = "manual"
)

// RunMeta carries run identity. Every log line and artifact path of a
// run is keyed by RunID.
type RunMeta struct {
	// RunID is the canonical run identifier. Globally unique.
	RunID string
	// Trigger is what started the run.
	Trigger Trigger
}

// NewRunMeta mints identity for a fresh run.
func NewRunMeta(trigger Trigger) RunMeta {
	return RunMeta{
		RunID:   uuid.NewString(),
		Trigger: trigger,
	}
}

// Validate checks run identity invariants.
func (r *RunMeta) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}
	switch r.Trigger {
	case TriggerCLI, TriggerSchedule, TriggerManual:
		return nil
	default:
		return fmt.Errorf("unknown trigger %q", r.Trigger)
	}
}
