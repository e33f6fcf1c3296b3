package batch

import (
	"encoding/json"
	"time"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/id"
)

// Status represents the lifecycle state of a batch operation.
type Status string

const (
	// StatusPending means the operation is registered but execution has
	// not begun.
	StatusPending Status = "pending"
	// StatusRunning means the execution loop is dispatching items.
	StatusRunning Status = "running"
	// StatusCompleted means every scheduled item was processed and the
	// operation was not halted.
	StatusCompleted Status = "completed"
	// StatusFailed means the operation was halted by a validation or item
	// failure with continue-on-error disabled.
	StatusFailed Status = "failed"
	// StatusCancelled means the operation was cancelled; items already
	// dispatched were allowed to finish.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is one of the terminal states.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ItemError records a single item failure by its position in the batch.
type ItemError struct {
	ItemIndex int    `json:"item_index"`
	Message   string `json:"message"`
}

// Options configures per-operation execution behaviour.
type Options struct {
	// ContinueOnError keeps dispatching remaining items after a failure.
	// When false, the first failure stops scheduling: in-flight items
	// drain and the operation finishes as failed.
	ContinueOnError bool `json:"continue_on_error"`

	// MaxConcurrency caps the operation's item-level parallelism.
	// Values below 1 fall back to the manager default.
	MaxConcurrency int `json:"max_concurrency"`

	// ValidateFirst validates every item before any item is dispatched.
	ValidateFirst bool `json:"validate_first"`

	// Delay pauses before each item dispatch, pacing long batches.
	Delay time.Duration `json:"delay"`

	// ItemTimeout bounds each gateway call. Zero means no deadline.
	ItemTimeout time.Duration `json:"item_timeout"`
}

// Request is the batch submission surface.
type Request struct {
	// Type is the mutation applied to every item.
	Type automation.Action `json:"type"`

	// TargetType is the kind of entity every item addresses.
	TargetType automation.TargetType `json:"target_type"`

	// Items are the opaque payloads, processed in submission order when
	// MaxConcurrency is 1.
	Items []json.RawMessage `json:"items"`

	// Options tunes execution. The zero value means: stop on first error,
	// concurrency 1, no pre-validation, no delay.
	Options Options `json:"options"`

	// CreatedBy is the opaque actor identifier recorded on the operation.
	CreatedBy string `json:"created_by"`
}

// Operation is the tracked record for one batch submission. It is mutated
// exclusively by the manager's execution loop; callers only ever see copies.
type Operation struct {
	automation.Entity

	ID              id.OperationID        `json:"id"`
	Type            automation.Action     `json:"type"`
	TargetType      automation.TargetType `json:"target_type"`
	Items           []json.RawMessage     `json:"items"`
	Options         Options               `json:"options"`
	Status          Status                `json:"status"`
	Progress        float64               `json:"progress"`
	SuccessfulItems int                   `json:"successful_items"`
	FailedItems     int                   `json:"failed_items"`
	Errors          []ItemError           `json:"errors,omitempty"`
	CreatedBy       string                `json:"created_by,omitempty"`
	CompletedAt     *time.Time            `json:"completed_at,omitempty"`
}

// Clone returns a deep-enough copy for handing to readers: slices are
// duplicated so the execution loop can keep appending without racing.
func (o *Operation) Clone() *Operation {
	cp := *o
	if o.Items != nil {
		cp.Items = make([]json.RawMessage, len(o.Items))
		copy(cp.Items, o.Items)
	}
	if o.Errors != nil {
		cp.Errors = make([]ItemError, len(o.Errors))
		copy(cp.Errors, o.Errors)
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// Stats aggregates fleet-wide batch numbers across all tracked operations.
type Stats struct {
	TotalOperations     int     `json:"total_operations"`
	RunningOperations   int     `json:"running_operations"`
	CompletedOperations int     `json:"completed_operations"`
	FailedOperations    int     `json:"failed_operations"`
	CancelledOperations int     `json:"cancelled_operations"`
	TotalItemsProcessed int     `json:"total_items_processed"`
	SuccessRate         float64 `json:"success_rate"`
}
