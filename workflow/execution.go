package workflow

import (
	"maps"
	"time"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/id"
)

// Status is the lifecycle state of a workflow execution. There is no
// pending state: executions start running the moment they are created, and
// they cannot be cancelled.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StepStatus is the outcome of a single step.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// StepResult records the outcome of one executed step. On a failed
// execution the failing result is always the last element of StepResults.
type StepResult struct {
	StepID      string         `json:"step_id"`
	StepType    string         `json:"step_type"`
	Status      StepStatus     `json:"status"`
	Output      map[string]any `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
}

// Execution is the tracked record of one workflow run. It is mutated only
// by the engine's own run loop and is immutable once terminal.
type Execution struct {
	automation.Entity

	ID          id.ExecutionID `json:"id"`
	WorkflowID  id.WorkflowID  `json:"workflow_id"`
	Context     map[string]any `json:"context,omitempty"`
	Status      Status         `json:"status"`
	StepResults []StepResult   `json:"step_results,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Clone returns a copy safe to hand to readers.
func (e *Execution) Clone() *Execution {
	cp := *e
	cp.Context = maps.Clone(e.Context)
	if e.StepResults != nil {
		cp.StepResults = make([]StepResult, len(e.StepResults))
		copy(cp.StepResults, e.StepResults)
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
