package batch

import (
	"context"

	"github.com/Pr0gCat/CodeHive-sub001/id"
)

// Store defines the persistence contract for batch operations. Records are
// process-lifetime; implementations must copy on both write and read so the
// manager's execution loop remains the single writer of each record.
type Store interface {
	// CreateOperation persists a new operation in pending state.
	CreateOperation(ctx context.Context, op *Operation) error

	// GetOperation retrieves an operation by ID.
	GetOperation(ctx context.Context, opID id.OperationID) (*Operation, error)

	// UpdateOperation persists changes to an existing operation.
	UpdateOperation(ctx context.Context, op *Operation) error

	// ListOperations returns every tracked operation in insertion order.
	ListOperations(ctx context.Context) ([]*Operation, error)
}
