package validate_test

import (
	"encoding/json"
	"errors"
	"testing"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/validate"
)

func TestItem(t *testing.T) {
	tests := []struct {
		name    string
		action  automation.Action
		target  automation.TargetType
		payload string
		wantErr bool
	}{
		{"valid epic create", automation.ActionCreate, automation.TargetEpic, `{"title":"Launch"}`, false},
		{"valid task create", automation.ActionCreate, automation.TargetTask, `{"title":"Wire CI"}`, false},
		{"valid instruction create", automation.ActionCreate, automation.TargetInstruction, `{"content":"run lint first"}`, false},
		{"epic missing title", automation.ActionCreate, automation.TargetEpic, `{"description":"no title"}`, true},
		{"instruction missing content", automation.ActionCreate, automation.TargetInstruction, `{"title":"wrong field"}`, true},
		{"empty payload", automation.ActionCreate, automation.TargetTask, ``, true},
		{"not an object", automation.ActionCreate, automation.TargetTask, `[1,2,3]`, true},
		{"unknown target", automation.ActionCreate, automation.TargetType("milestone"), `{"title":"x"}`, true},
		{"unknown action", automation.Action("upsert"), automation.TargetTask, `{"title":"x"}`, true},
		{"update with id", automation.ActionUpdate, automation.TargetStory, `{"id":"s-1","title":"renamed"}`, false},
		{"update missing id", automation.ActionUpdate, automation.TargetStory, `{"title":"renamed"}`, true},
		{"delete with id", automation.ActionDelete, automation.TargetTask, `{"id":"t-9"}`, false},
		{"delete missing id", automation.ActionDelete, automation.TargetTask, `{}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Item(tt.action, tt.target, json.RawMessage(tt.payload))
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil && !errors.Is(err, automation.ErrValidation) {
				t.Errorf("error does not wrap ErrValidation: %v", err)
			}
		})
	}
}
