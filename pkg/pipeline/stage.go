package pipeline

import (
	"context"
	"time"
)

// Status is the lifecycle state of a stage within one run.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}

	return "unknown"
}

// Stage is one unit of work in the pipeline DAG.
type Stage struct {
	// Run does the stage's work. Returning [ErrSkipDownstream] marks
	// the stage succeeded while skipping all transitive dependents.
	Run func(ctx context.Context) error
	// ID names the stage uniquely within a [Runner].
	ID string
	// Needs lists the IDs of stages that must succeed first.
	Needs []string
}

// StageResult records the outcome of one stage.
type StageResult struct {
	Err      error
	ID       string
	Status   Status
	Duration time.Duration
}

// Summary is the outcome of a whole pipeline run. Results are in the
// order stages were added.
type Summary struct {
	Results  []StageResult
	Duration time.Duration
}

// Result returns the result for the stage with the given ID.
func (s *Summary) Result(id string) (StageResult, bool) {
	for _, res := range s.Results {
		if res.ID == id {
			return res, true
		}
	}

	return StageResult{}, false
}

// Failed returns the results of all failed stages.
func (s *Summary) Failed() []StageResult {
	failed := []StageResult{}

	for _, res := range s.Results {
		if res.Status == StatusFailed {
			failed = append(failed, res)
		}
	}

	return failed
}

// Skipped returns the results of all skipped stages.
func (s *Summary) Skipped() []StageResult {
	skipped := []StageResult{}

	for _, res := range s.Results {
		if res.Status == StatusSkipped {
			skipped = append(skipped, res)
		}
	}

	return skipped
}
