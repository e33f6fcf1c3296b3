package automation

import (
	"encoding/json"
	"time"

	"github.com/Pr0gCat/CodeHive-sub001/id"
)

// Action is the mutation a batch operation applies to each of its items.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether the action is one of the recognized values.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// TargetType identifies the kind of domain entity a batch item addresses.
type TargetType string

const (
	TargetEpic        TargetType = "epic"
	TargetStory       TargetType = "story"
	TargetTask        TargetType = "task"
	TargetInstruction TargetType = "instruction"
)

// Valid reports whether the target type is one of the recognized values.
func (t TargetType) Valid() bool {
	switch t {
	case TargetEpic, TargetStory, TargetTask, TargetInstruction:
		return true
	}
	return false
}

// Item is the dispatch descriptor handed to the item middleware chain and
// the entity gateway for a single batch element. It lives in the root
// package so that middleware and batch can both depend on it without an
// import cycle.
type Item struct {
	// OperationID is the owning batch operation.
	OperationID id.OperationID `json:"operation_id"`

	// Index is the item's position in the submitted batch. Error entries
	// on the operation refer back to this index.
	Index int `json:"index"`

	// Action and TargetType select the gateway call.
	Action     Action     `json:"action"`
	TargetType TargetType `json:"target_type"`

	// Payload is the opaque item body forwarded to the gateway.
	Payload json.RawMessage `json:"payload"`

	// Actor is the identity that submitted the batch.
	Actor string `json:"actor,omitempty"`

	// Delay is an optional pause before dispatch, used to pace
	// long-running batches.
	Delay time.Duration `json:"delay,omitempty"`

	// Timeout bounds the gateway call. Zero means no per-item deadline.
	Timeout time.Duration `json:"timeout,omitempty"`
}
