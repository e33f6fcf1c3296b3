// Package stream provides a real-time event broker for engine lifecycle
// events. It bridges the hook extension system to connected clients via
// topic-based pub/sub, with an optional WebSocket fan-out handler.
package stream

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	// Batch events.
	EventBatchCreated   EventType = "batch.created"
	EventBatchProgress  EventType = "batch.progress"
	EventBatchCompleted EventType = "batch.completed"

	// Workflow events.
	EventWorkflowStarted       EventType = "workflow.started"
	EventWorkflowStepCompleted EventType = "workflow.step_completed"
	EventWorkflowStepFailed    EventType = "workflow.step_failed"
	EventWorkflowCompleted     EventType = "workflow.completed"
	EventWorkflowFailed        EventType = "workflow.failed"

	// Trigger events.
	EventTriggerFired EventType = "trigger.fired"
)

// Event is the envelope sent to subscribers on a topic channel.
type Event struct {
	// Type identifies the lifecycle event.
	Type EventType `json:"type"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"ts"`

	// Topic is the channel this event was published on.
	Topic string `json:"topic"`

	// Data is the event-specific payload.
	Data json.RawMessage `json:"data"`
}

// BatchEventData is the payload for batch lifecycle events: a snapshot of
// the operation record at emission time.
type BatchEventData struct {
	OperationID     string  `json:"operation_id"`
	Type            string  `json:"type"`
	TargetType      string  `json:"target_type"`
	Status          string  `json:"status"`
	Progress        float64 `json:"progress"`
	SuccessfulItems int     `json:"successful_items"`
	FailedItems     int     `json:"failed_items"`
	CreatedBy       string  `json:"created_by,omitempty"`
}

// WorkflowEventData is the payload for workflow lifecycle events.
type WorkflowEventData struct {
	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	Status      string `json:"status"`
	StepID      string `json:"step_id,omitempty"`
	StepType    string `json:"step_type,omitempty"`
	Error       string `json:"error,omitempty"`
}

// TriggerEventData is the payload for trigger lifecycle events.
type TriggerEventData struct {
	EntryName   string `json:"entry_name"`
	ExecutionID string `json:"execution_id"`
}
