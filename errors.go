package automation

import "errors"

var (
	// Request-shape errors. Surfaced synchronously to the caller of the
	// submission API; they never produce a tracked operation or execution.
	ErrInvalidRequest  = errors.New("automation: invalid batch request")
	ErrInvalidWorkflow = errors.New("automation: invalid workflow definition")

	// Not found errors.
	ErrOperationNotFound  = errors.New("automation: batch operation not found")
	ErrWorkflowNotFound   = errors.New("automation: workflow not found")
	ErrExecutionNotFound  = errors.New("automation: workflow execution not found")
	ErrDeadLetterNotFound = errors.New("automation: dead letter entry not found")
	ErrTriggerNotFound    = errors.New("automation: trigger entry not found")

	// Conflict errors.
	ErrOperationExists  = errors.New("automation: batch operation already exists")
	ErrDuplicateTrigger = errors.New("automation: duplicate trigger entry")

	// State errors.
	ErrInvalidState = errors.New("automation: invalid state transition")

	// Execution errors. Per-item and per-step failures are recorded on the
	// operation/execution record, not returned; these sentinels classify them.
	ErrValidation = errors.New("automation: item failed validation")
	ErrGateway    = errors.New("automation: entity gateway rejected item")
	ErrStep       = errors.New("automation: workflow step failed")
)
