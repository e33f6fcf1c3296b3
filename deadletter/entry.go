// Package deadletter captures batch items that failed during execution so
// operators can inspect them and replay them as a fresh batch. Entries are
// process-lifetime, like every other engine record.
package deadletter

import (
	"encoding/json"
	"time"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/id"
)

// Entry represents a single failed batch item.
type Entry struct {
	ID          id.DeadLetterID       `json:"id"`
	OperationID id.OperationID        `json:"operation_id"`
	ItemIndex   int                   `json:"item_index"`
	Action      automation.Action     `json:"action"`
	TargetType  automation.TargetType `json:"target_type"`
	Payload     json.RawMessage       `json:"payload"`
	Error       string                `json:"error"`
	Actor       string                `json:"actor,omitempty"`
	FailedAt    time.Time             `json:"failed_at"`
	ReplayedAt  *time.Time            `json:"replayed_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}
