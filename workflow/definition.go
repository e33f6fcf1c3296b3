package workflow

import (
	"maps"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/id"
)

// Trigger declares how a workflow may be fired automatically. Type names
// the firing source (for example "cron" or "batch:completed") and
// Conditions are flat string-equality predicates matched against the
// trigger payload.
type Trigger struct {
	Type       string            `json:"type"`
	Conditions map[string]string `json:"conditions,omitempty"`
}

// Step is one unit of a workflow. Type selects the registered handler and
// Config is handed to it verbatim, merged against the execution context.
type Step struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// Definition is a registered workflow. Built-in and custom definitions
// share the registry and the execution path; once registered they are
// indistinguishable.
type Definition struct {
	automation.Entity

	ID          id.WorkflowID `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Triggers    []Trigger     `json:"triggers,omitempty"`
	Steps       []Step        `json:"steps"`

	// Conditions gate execution: flat string-equality predicates checked
	// against the execution context before each step. An unmet condition
	// stops the execution early without failing it.
	Conditions map[string]string `json:"conditions,omitempty"`

	IsActive bool `json:"is_active"`
}

// Clone returns a copy safe to hand to readers.
func (d *Definition) Clone() *Definition {
	cp := *d
	if d.Triggers != nil {
		cp.Triggers = make([]Trigger, len(d.Triggers))
		for i, tr := range d.Triggers {
			cp.Triggers[i] = Trigger{Type: tr.Type, Conditions: maps.Clone(tr.Conditions)}
		}
	}
	if d.Steps != nil {
		cp.Steps = make([]Step, len(d.Steps))
		for i, st := range d.Steps {
			cp.Steps[i] = Step{ID: st.ID, Type: st.Type, Config: maps.Clone(st.Config)}
		}
	}
	cp.Conditions = maps.Clone(d.Conditions)
	return &cp
}
