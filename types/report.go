package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Outcome is the three-way classification of a completed run.
type Outcome int

const (
	// OutcomeSuccess means the record set was loaded into the sink.
	OutcomeSuccess Outcome = iota
	// OutcomePartialFailure means the sink was unreachable and the
	// transformed data was preserved in a local fallback artifact.
	OutcomePartialFailure
	// OutcomeFailure means the run produced nothing durable.
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartialFailure:
		return "partial_failure"
	case OutcomeFailure:
		return "failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ExitCode maps the outcome to a process exit code.
// Success and PartialFailure exit 0 (data preserved either way);
// Failure exits 1.
func (o Outcome) ExitCode() int {
	if o == OutcomeFailure {
		return 1
	}
	return 0
}

// MarshalJSON encodes the outcome as its lowercase word.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON decodes the lowercase word form.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "success":
		*o = OutcomeSuccess
	case "partial_failure":
		*o = OutcomePartialFailure
	case "failure":
		*o = OutcomeFailure
	default:
		return fmt.Errorf("unknown outcome %q", s)
	}
	return nil
}

// RunReport is the aggregate over one pipeline execution.
// Built once at orchestration end and never mutated after.
type RunReport struct {
	RunID  string `json:"run_id"`
	Source string `json:"source"`

	RecordsExtracted int `json:"records_extracted"`
	RecordsInserted  int `json:"records_inserted"`

	Summary Summary `json:"summary"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`

	Outcome Outcome `json:"outcome"`

	// FallbackPath is set when the sink was unreachable and the data
	// was written to a fallback artifact instead.
	FallbackPath string `json:"fallback_path,omitempty"`

	// ArtifactPaths lists the best-effort secondary artifacts written
	// for this run (processed data, snapshot, report files).
	ArtifactPaths []string `json:"artifact_paths,omitempty"`

	// Error carries the failure reason when Outcome is failure.
	Error string `json:"error,omitempty"`
}
