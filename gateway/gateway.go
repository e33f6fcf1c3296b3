// Package gateway defines the entity gateway contract — the only way the
// engine mutates or reads domain state. The gateway is owned by the
// hierarchy-management subsystem; the engine treats any returned error as an
// item-level failure and never interprets payloads beyond structural checks.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	automation "github.com/Pr0gCat/CodeHive-sub001"
)

// Filter narrows list queries by exact field match. A nil or empty filter
// matches everything.
type Filter map[string]string

// Gateway is the entity persistence contract consumed by the batch manager
// and workflow step handlers. Payloads are opaque; update and delete
// payloads carry the target entity's "id" field.
type Gateway interface {
	CreateEpic(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	CreateStory(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	CreateTask(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	CreateInstruction(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

	UpdateEpic(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	UpdateStory(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	UpdateTask(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	UpdateInstruction(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

	DeleteEpic(ctx context.Context, payload json.RawMessage) error
	DeleteStory(ctx context.Context, payload json.RawMessage) error
	DeleteTask(ctx context.Context, payload json.RawMessage) error
	DeleteInstruction(ctx context.Context, payload json.RawMessage) error

	ListEpics(ctx context.Context, filter Filter) ([]json.RawMessage, error)
	ListStories(ctx context.Context, filter Filter) ([]json.RawMessage, error)
	ListTasks(ctx context.Context, filter Filter) ([]json.RawMessage, error)
}

// Apply routes one batch item to the gateway call selected by its action
// and target type. Both the batch executor and the workflow step handlers
// dispatch through here so the action/target matrix lives in one place.
func Apply(ctx context.Context, g Gateway, action automation.Action, target automation.TargetType, payload json.RawMessage) (json.RawMessage, error) {
	switch action {
	case automation.ActionCreate:
		switch target {
		case automation.TargetEpic:
			return g.CreateEpic(ctx, payload)
		case automation.TargetStory:
			return g.CreateStory(ctx, payload)
		case automation.TargetTask:
			return g.CreateTask(ctx, payload)
		case automation.TargetInstruction:
			return g.CreateInstruction(ctx, payload)
		}
	case automation.ActionUpdate:
		switch target {
		case automation.TargetEpic:
			return g.UpdateEpic(ctx, payload)
		case automation.TargetStory:
			return g.UpdateStory(ctx, payload)
		case automation.TargetTask:
			return g.UpdateTask(ctx, payload)
		case automation.TargetInstruction:
			return g.UpdateInstruction(ctx, payload)
		}
	case automation.ActionDelete:
		var err error
		switch target {
		case automation.TargetEpic:
			err = g.DeleteEpic(ctx, payload)
		case automation.TargetStory:
			err = g.DeleteStory(ctx, payload)
		case automation.TargetTask:
			err = g.DeleteTask(ctx, payload)
		case automation.TargetInstruction:
			err = g.DeleteInstruction(ctx, payload)
		default:
			return nil, fmt.Errorf("gateway: unknown target type %q", target)
		}
		return nil, err
	}
	return nil, fmt.Errorf("gateway: no route for action %q target %q", action, target)
}
