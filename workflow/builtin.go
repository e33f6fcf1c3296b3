package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/gateway"
)

// Built-in step types.
const (
	StepWait              = "wait"
	StepCreateEpic        = "create-epic"
	StepCreateStory       = "create-story"
	StepCreateTask        = "create-task"
	StepCreateInstruction = "create-instruction"
)

// RegisterBuiltinHandlers installs the wait and create-family step
// handlers on the registry.
func RegisterBuiltinHandlers(r *Registry, gw gateway.Gateway) {
	r.Register(StepWait, WaitHandler())
	r.Register(StepCreateEpic, CreateHandler(gw, automation.TargetEpic))
	r.Register(StepCreateStory, CreateHandler(gw, automation.TargetStory))
	r.Register(StepCreateTask, CreateHandler(gw, automation.TargetTask))
	r.Register(StepCreateInstruction, CreateHandler(gw, automation.TargetInstruction))
}

// WaitHandler suspends for the duration named by config["duration"],
// given either as a Go duration string or a number of milliseconds.
func WaitHandler() Handler {
	return func(ctx context.Context, step Step, _ map[string]any) (map[string]any, error) {
		d, err := durationFrom(step.Config["duration"])
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", step.ID, err)
		}
		select {
		case <-time.After(d):
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func durationFrom(v any) (time.Duration, error) {
	switch d := v.(type) {
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", d, err)
		}
		return parsed, nil
	case float64:
		return time.Duration(d) * time.Millisecond, nil
	case int:
		return time.Duration(d) * time.Millisecond, nil
	case time.Duration:
		return d, nil
	case nil:
		return 0, fmt.Errorf("missing duration config")
	default:
		return 0, fmt.Errorf("invalid duration config of type %T", v)
	}
}

// CreateHandler builds the entity payload by merging the step config over
// the execution context (config wins on collision) and invokes the gateway
// create call for the target type. When neither the config nor the flat
// context carries the parent link (epic_id for stories, story_id for tasks)
// it is lifted from the parent entity object in the context, so a created
// parent earlier in the run links its children automatically.
//
// The handler's output carries the created entity under the target name
// and its id under "<target>_id", which later steps see via the merged
// execution context.
func CreateHandler(gw gateway.Gateway, target automation.TargetType) Handler {
	return func(ctx context.Context, step Step, execCtx map[string]any) (map[string]any, error) {
		body := MergeConfig(execCtx, step.Config)
		if link := parentLink(target); link != "" {
			inheritLink(body, execCtx, link)
		}

		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("step %q: marshal payload: %w", step.ID, err)
		}

		var created json.RawMessage
		switch target {
		case automation.TargetEpic:
			created, err = gw.CreateEpic(ctx, payload)
		case automation.TargetStory:
			created, err = gw.CreateStory(ctx, payload)
		case automation.TargetTask:
			created, err = gw.CreateTask(ctx, payload)
		case automation.TargetInstruction:
			created, err = gw.CreateInstruction(ctx, payload)
		default:
			return nil, fmt.Errorf("step %q: unsupported target type %q", step.ID, target)
		}
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", step.ID, err)
		}

		var entity map[string]any
		if err := json.Unmarshal(created, &entity); err != nil {
			return nil, fmt.Errorf("step %q: decode gateway response: %w", step.ID, err)
		}

		output := map[string]any{string(target): entity}
		if entityID, ok := entity["id"]; ok {
			output[string(target)+"_id"] = entityID
		}
		return output, nil
	}
}

// parentLink names the foreign-key field the target inherits from its
// parent entity.
func parentLink(target automation.TargetType) string {
	switch target {
	case automation.TargetStory:
		return "epic_id"
	case automation.TargetTask:
		return "story_id"
	}
	return ""
}

// inheritLink fills body[link] from the execution context: either the flat
// key or the id of the parent entity object.
func inheritLink(body, execCtx map[string]any, link string) {
	if _, ok := body[link]; ok {
		return
	}
	if v, ok := execCtx[link]; ok {
		body[link] = v
		return
	}
	parent := link[:len(link)-len("_id")]
	if obj, ok := execCtx[parent].(map[string]any); ok {
		if v, ok := obj["id"]; ok {
			body[link] = v
		}
	}
}

// BuiltinDefinitions returns the workflow definitions registered at engine
// construction. Their ids are assigned on registration; callers discover
// them by name through GetAllWorkflows.
func BuiltinDefinitions() []*Definition {
	return []*Definition{
		{
			Name:        "epic-to-stories",
			Description: "Expands a created epic into its default story breakdown.",
			Triggers: []Trigger{{
				Type: "batch:completed",
				Conditions: map[string]string{
					"type":        string(automation.ActionCreate),
					"target_type": string(automation.TargetEpic),
					"status":      "completed",
				},
			}},
			Steps: []Step{
				{ID: "planning", Type: StepCreateStory, Config: map[string]any{"title": "Planning", "status": "todo"}},
				{ID: "implementation", Type: StepCreateStory, Config: map[string]any{"title": "Implementation", "status": "todo"}},
				{ID: "verification", Type: StepCreateStory, Config: map[string]any{"title": "Verification", "status": "todo"}},
			},
			IsActive: true,
		},
		{
			Name:        "story-to-tasks",
			Description: "Expands a created story into its default task breakdown.",
			Triggers: []Trigger{{
				Type: "batch:completed",
				Conditions: map[string]string{
					"type":        string(automation.ActionCreate),
					"target_type": string(automation.TargetStory),
					"status":      "completed",
				},
			}},
			Steps: []Step{
				{ID: "design", Type: StepCreateTask, Config: map[string]any{"title": "Design", "status": "todo"}},
				{ID: "implement", Type: StepCreateTask, Config: map[string]any{"title": "Implement", "status": "todo"}},
				{ID: "review", Type: StepCreateTask, Config: map[string]any{"title": "Review", "status": "todo"}},
			},
			IsActive: true,
		},
	}
}
