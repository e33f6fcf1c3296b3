package trigger

import (
	"time"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/id"
)

// Entry is a scheduled workflow trigger: the named workflow is executed
// with the stored context every time the cron schedule fires.
type Entry struct {
	automation.Entity

	ID         id.TriggerID   `json:"id"`
	Name       string         `json:"name"`
	Schedule   string         `json:"schedule"`
	WorkflowID id.WorkflowID  `json:"workflow_id"`
	Context    map[string]any `json:"context,omitempty"`
	LastRunAt  *time.Time     `json:"last_run_at,omitempty"`
	NextRunAt  *time.Time     `json:"next_run_at,omitempty"`
	Enabled    bool           `json:"enabled"`
}
