package hook

import (
	"context"

	"github.com/Pr0gCat/CodeHive-sub001/batch"
	"github.com/Pr0gCat/CodeHive-sub001/id"
	"github.com/Pr0gCat/CodeHive-sub001/workflow"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Batch lifecycle hooks
// ──────────────────────────────────────────────────

// BatchCreated is called after a batch operation is registered.
type BatchCreated interface {
	OnBatchCreated(ctx context.Context, op *batch.Operation) error
}

// BatchProgress is called after each processed item with a snapshot of
// the operation record.
type BatchProgress interface {
	OnBatchProgress(ctx context.Context, op *batch.Operation) error
}

// BatchCompleted is called when a batch operation reaches a terminal
// state (completed, failed, or cancelled).
type BatchCompleted interface {
	OnBatchCompleted(ctx context.Context, op *batch.Operation) error
}

// ──────────────────────────────────────────────────
// Workflow lifecycle hooks
// ──────────────────────────────────────────────────

// WorkflowStarted is called when a workflow execution begins.
type WorkflowStarted interface {
	OnWorkflowStarted(ctx context.Context, exec *workflow.Execution) error
}

// WorkflowStepCompleted is called after a workflow step completes.
type WorkflowStepCompleted interface {
	OnWorkflowStepCompleted(ctx context.Context, exec *workflow.Execution, result workflow.StepResult) error
}

// WorkflowStepFailed is called when a workflow step fails.
type WorkflowStepFailed interface {
	OnWorkflowStepFailed(ctx context.Context, exec *workflow.Execution, result workflow.StepResult) error
}

// WorkflowCompleted is called after a workflow execution finishes
// successfully.
type WorkflowCompleted interface {
	OnWorkflowCompleted(ctx context.Context, exec *workflow.Execution) error
}

// WorkflowFailed is called when a workflow execution fails.
type WorkflowFailed interface {
	OnWorkflowFailed(ctx context.Context, exec *workflow.Execution) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// TriggerFired is called when a scheduled or event-driven trigger fires
// a workflow execution.
type TriggerFired interface {
	OnTriggerFired(ctx context.Context, entryName string, execID id.ExecutionID) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
