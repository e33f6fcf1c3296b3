// Package store defines the aggregate persistence interface. Each subsystem
// (batch, workflow, deadletter, trigger) defines its own store interface and
// the composite Store composes them all. store/memory is the only backend;
// records live for the process lifetime.
package store

import (
	"context"

	"github.com/Pr0gCat/CodeHive-sub001/batch"
	"github.com/Pr0gCat/CodeHive-sub001/deadletter"
	"github.com/Pr0gCat/CodeHive-sub001/trigger"
	"github.com/Pr0gCat/CodeHive-sub001/workflow"
)

// Store is the aggregate persistence interface. Each subsystem store is a
// composable interface; a single backend implements all of them.
type Store interface {
	batch.Store
	workflow.Store
	deadletter.Store
	trigger.Store

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
