package pipeline

import (
	"time"

	"github.com/i474232898/weather-forecast-etl/internal/forecast"
)

// RunStatus is the outcome of a single pipeline run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Trigger records what started a run.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
	TriggerOnce     Trigger = "once"
)

// RunRecord describes one run. Records are kept for operators only; the
// artifact on disk is the pipeline's output.
type RunRecord struct {
	ID          string           `json:"id"`
	Trigger     Trigger          `json:"trigger"`
	LogicalDate string           `json:"logicalDate"`
	StartTime   string           `json:"startTime"`
	StartedAt   time.Time        `json:"startedAt"` // always UTC
	FinishedAt  time.Time        `json:"finishedAt"`
	Status      RunStatus        `json:"status"`
	Artifact    string           `json:"artifact,omitempty"`
	Summary     forecast.Summary `json:"summary"`
	Error       string           `json:"error,omitempty"`
}

// Store is the contract the in-memory run history must satisfy.
type Store interface {
	Save(rec RunRecord)
	Get(id string) (RunRecord, error)
	Latest() (RunRecord, error)
	Range(from, to time.Time) ([]RunRecord, error)
}
