package deadletter

import (
	"context"

	"github.com/Pr0gCat/CodeHive-sub001/id"
)

// ListOpts controls pagination for dead letter list queries.
type ListOpts struct {
	// Limit is the maximum number of entries to return. Zero means no limit.
	Limit int
	// Offset is the number of entries to skip.
	Offset int
	// OperationID filters by originating operation. Nil ID means all.
	OperationID id.OperationID
}

// Store defines the persistence contract for dead letter entries.
type Store interface {
	// PushDeadLetter persists a new entry.
	PushDeadLetter(ctx context.Context, e *Entry) error

	// GetDeadLetter retrieves an entry by ID.
	GetDeadLetter(ctx context.Context, entryID id.DeadLetterID) (*Entry, error)

	// ListDeadLetters returns entries matching the given options, oldest first.
	ListDeadLetters(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// MarkReplayed stamps an entry's ReplayedAt timestamp.
	MarkReplayed(ctx context.Context, entryID id.DeadLetterID) error

	// PurgeDeadLetters removes all entries and returns the removed count.
	PurgeDeadLetters(ctx context.Context) (int64, error)
}
