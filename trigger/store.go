package trigger

import (
	"context"
	"time"

	"github.com/Pr0gCat/CodeHive-sub001/id"
)

// Store defines the persistence contract for trigger entries.
type Store interface {
	// RegisterTrigger persists a new trigger entry. Returns an error if
	// the name already exists.
	RegisterTrigger(ctx context.Context, entry *Entry) error

	// GetTrigger retrieves a trigger entry by ID.
	GetTrigger(ctx context.Context, entryID id.TriggerID) (*Entry, error)

	// ListTriggers returns all trigger entries.
	ListTriggers(ctx context.Context) ([]*Entry, error)

	// UpdateTriggerLastRun records when a trigger entry last fired.
	UpdateTriggerLastRun(ctx context.Context, entryID id.TriggerID, at time.Time) error

	// UpdateTrigger updates a trigger entry (Enabled, NextRunAt, etc.).
	UpdateTrigger(ctx context.Context, entry *Entry) error

	// DeleteTrigger removes a trigger entry by ID.
	DeleteTrigger(ctx context.Context, entryID id.TriggerID) error
}
