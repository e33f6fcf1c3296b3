package workflow

import (
	"context"

	"github.com/Pr0gCat/CodeHive-sub001/id"
)

// Store defines the persistence contract for workflow definitions and
// executions. Records are process-lifetime; implementations copy on both
// write and read so the engine's run loop stays the single writer.
type Store interface {
	// PutWorkflow registers or replaces a definition by id.
	PutWorkflow(ctx context.Context, def *Definition) error

	// GetWorkflow retrieves a definition by id.
	GetWorkflow(ctx context.Context, wfID id.WorkflowID) (*Definition, error)

	// ListWorkflows returns every registered definition in insertion order.
	ListWorkflows(ctx context.Context) ([]*Definition, error)

	// CreateExecution persists a new execution in running state.
	CreateExecution(ctx context.Context, exec *Execution) error

	// GetExecution retrieves an execution by id.
	GetExecution(ctx context.Context, execID id.ExecutionID) (*Execution, error)

	// UpdateExecution persists changes to an existing execution.
	UpdateExecution(ctx context.Context, exec *Execution) error

	// ListExecutions returns every tracked execution in insertion order.
	ListExecutions(ctx context.Context) ([]*Execution, error)
}
