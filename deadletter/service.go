package deadletter

import (
	"context"
	"time"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/id"
)

// SubmitFunc resubmits a dead letter entry as a new single-item batch.
// The batch manager provides the implementation; the callback breaks the
// import cycle between this package and the manager.
type SubmitFunc func(ctx context.Context, e *Entry) (id.OperationID, error)

// Service provides high-level dead letter operations over a Store.
type Service struct {
	store  Store
	submit SubmitFunc
}

// NewService creates a dead letter service. submit may be nil, in which
// case Replay returns an error.
func NewService(store Store, submit SubmitFunc) *Service {
	return &Service{store: store, submit: submit}
}

// Push builds an Entry from a failed item and persists it.
func (s *Service) Push(ctx context.Context, item *automation.Item, itemErr error) error {
	now := time.Now().UTC()
	entry := &Entry{
		ID:          id.NewDeadLetterID(),
		OperationID: item.OperationID,
		ItemIndex:   item.Index,
		Action:      item.Action,
		TargetType:  item.TargetType,
		Payload:     item.Payload,
		Error:       itemErr.Error(),
		Actor:       item.Actor,
		FailedAt:    now,
		CreatedAt:   now,
	}
	return s.store.PushDeadLetter(ctx, entry)
}

// Replay resubmits an entry as a new single-item batch operation and marks
// the entry as replayed. The new operation gets a fresh ID and default
// options.
func (s *Service) Replay(ctx context.Context, entryID id.DeadLetterID) (id.OperationID, error) {
	if s.submit == nil {
		return id.Nil, automation.ErrInvalidState
	}

	entry, err := s.store.GetDeadLetter(ctx, entryID)
	if err != nil {
		return id.Nil, err
	}

	opID, err := s.submit(ctx, entry)
	if err != nil {
		return id.Nil, err
	}

	if err := s.store.MarkReplayed(ctx, entryID); err != nil {
		// The batch is already submitted; surface the id anyway.
		return opID, err
	}

	return opID, nil
}

// Store returns the underlying dead letter store for direct access to
// List, Get, and Purge operations.
func (s *Service) Store() Store { return s.store }
