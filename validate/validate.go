// Package validate provides pure structural validation of batch item
// payloads. Validation never touches the gateway: it checks that a payload
// is a JSON object with the fields the target type requires, nothing more.
// Domain business rules belong to the hierarchy-management subsystem.
package validate

import (
	"encoding/json"
	"fmt"

	automation "github.com/Pr0gCat/CodeHive-sub001"
)

// requiredFields maps each target type to the non-empty string fields a
// create payload must carry.
var requiredFields = map[automation.TargetType][]string{
	automation.TargetEpic:        {"title"},
	automation.TargetStory:       {"title"},
	automation.TargetTask:        {"title"},
	automation.TargetInstruction: {"content"},
}

// Item checks one payload against the structural requirements of its action
// and target type. A nil return means the item is structurally valid; a
// non-nil return wraps automation.ErrValidation and carries a human-readable
// reason.
func Item(action automation.Action, target automation.TargetType, payload json.RawMessage) error {
	if !action.Valid() {
		return fmt.Errorf("%w: unknown action %q", automation.ErrValidation, action)
	}
	if !target.Valid() {
		return fmt.Errorf("%w: unknown target type %q", automation.ErrValidation, target)
	}

	if len(payload) == 0 {
		return fmt.Errorf("%w: empty payload", automation.ErrValidation)
	}

	obj := make(map[string]any)
	if err := json.Unmarshal(payload, &obj); err != nil {
		return fmt.Errorf("%w: payload is not a JSON object: %v", automation.ErrValidation, err)
	}

	// Update and delete address an existing entity by id.
	if action == automation.ActionUpdate || action == automation.ActionDelete {
		if s, _ := obj["id"].(string); s == "" {
			return fmt.Errorf("%w: %s payload missing id", automation.ErrValidation, action)
		}
	}

	// Create payloads must carry the type's required fields.
	if action == automation.ActionCreate {
		for _, field := range requiredFields[target] {
			if s, _ := obj[field].(string); s == "" {
				return fmt.Errorf("%w: %s missing required field %q", automation.ErrValidation, target, field)
			}
		}
	}

	return nil
}
