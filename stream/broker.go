package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Pr0gCat/CodeHive-sub001/batch"
	"github.com/Pr0gCat/CodeHive-sub001/hook"
	"github.com/Pr0gCat/CodeHive-sub001/id"
	"github.com/Pr0gCat/CodeHive-sub001/workflow"
)

// Compile-time interface checks.
var (
	_ hook.Extension             = (*Broker)(nil)
	_ hook.BatchCreated          = (*Broker)(nil)
	_ hook.BatchProgress         = (*Broker)(nil)
	_ hook.BatchCompleted        = (*Broker)(nil)
	_ hook.WorkflowStarted       = (*Broker)(nil)
	_ hook.WorkflowStepCompleted = (*Broker)(nil)
	_ hook.WorkflowStepFailed    = (*Broker)(nil)
	_ hook.WorkflowCompleted     = (*Broker)(nil)
	_ hook.WorkflowFailed        = (*Broker)(nil)
	_ hook.TriggerFired          = (*Broker)(nil)
	_ hook.Shutdown              = (*Broker)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 256

// DefaultCredits is the default initial credits for new subscribers.
const DefaultCredits int64 = 1000

// Broker is the real-time stream broker. It implements the hook extension
// interfaces to receive lifecycle events and fans them out to subscribers
// via topic-based pub/sub.
type Broker struct {
	topics *TopicRegistry
	logger *slog.Logger

	// Subscriber management.
	subscribers sync.Map // subscriberID → *Subscriber

	// Metrics.
	totalPublished atomic.Int64
	totalDropped   atomic.Int64

	// Config.
	bufferSize     int
	defaultCredits int64
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) { b.bufferSize = size }
}

// WithDefaultCredits sets the initial credits for new subscribers.
func WithDefaultCredits(credits int64) BrokerOption {
	return func(b *Broker) { b.defaultCredits = credits }
}

// NewBroker creates a new stream broker.
func NewBroker(logger *slog.Logger, opts ...BrokerOption) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		topics:         NewTopicRegistry(),
		logger:         logger,
		bufferSize:     DefaultBufferSize,
		defaultCredits: DefaultCredits,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements hook.Extension.
func (b *Broker) Name() string { return "stream-broker" }

// Topics returns the topic registry for external use.
func (b *Broker) Topics() *TopicRegistry { return b.topics }

// Subscribe creates a new subscriber on the given topics.
func (b *Broker) Subscribe(subscriberID string, topics ...string) *Subscriber {
	sub := NewSubscriber(subscriberID, b.bufferSize, b.defaultCredits)
	b.subscribers.Store(subscriberID, sub)
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
	return sub
}

// SubscribeTo adds an existing subscriber to additional topics.
func (b *Broker) SubscribeTo(subscriberID string, topics ...string) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return
	}
	sub := val.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
}

// Unsubscribe removes a subscriber from specific topics.
func (b *Broker) Unsubscribe(subscriberID string, topics ...string) {
	for _, topic := range topics {
		b.topics.Unsubscribe(topic, subscriberID)
	}
}

// RemoveSubscriber removes a subscriber from all topics and closes it.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	b.topics.UnsubscribeAll(subscriberID)
	if val, ok := b.subscribers.LoadAndDelete(subscriberID); ok {
		val.(*Subscriber).Close() //nolint:errcheck // sync.Map always stores *Subscriber
	}
}

// GetSubscriber returns a subscriber by ID.
func (b *Broker) GetSubscriber(subscriberID string) (*Subscriber, bool) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return nil, false
	}
	return val.(*Subscriber), true //nolint:errcheck // sync.Map always stores *Subscriber
}

// Stats returns broker statistics.
func (b *Broker) Stats() BrokerStats {
	count := 0
	b.subscribers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return BrokerStats{
		TopicCount:      b.topics.TopicCount(),
		SubscriberCount: count,
		TotalPublished:  b.totalPublished.Load(),
		TotalDropped:    b.totalDropped.Load(),
	}
}

// BrokerStats contains broker metrics.
type BrokerStats struct {
	TopicCount      int   `json:"topic_count"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalPublished  int64 `json:"total_published"`
	TotalDropped    int64 `json:"total_dropped"`
}

// publish creates an event and broadcasts it to all matching topics.
func (b *Broker) publish(evt *Event) {
	topics := resolveTopics(evt)
	delivered, dropped := b.topics.Broadcast(topics, evt)
	b.totalPublished.Add(int64(delivered))
	b.totalDropped.Add(int64(dropped))
}

// mustMarshal marshals data to JSON, panicking on error (programming error).
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("stream: marshal event data: " + err.Error())
	}
	return data
}

func batchData(op *batch.Operation) BatchEventData {
	return BatchEventData{
		OperationID:     op.ID.String(),
		Type:            string(op.Type),
		TargetType:      string(op.TargetType),
		Status:          string(op.Status),
		Progress:        op.Progress,
		SuccessfulItems: op.SuccessfulItems,
		FailedItems:     op.FailedItems,
		CreatedBy:       op.CreatedBy,
	}
}

func workflowData(exec *workflow.Execution) WorkflowEventData {
	return WorkflowEventData{
		ExecutionID: exec.ID.String(),
		WorkflowID:  exec.WorkflowID.String(),
		Status:      string(exec.Status),
	}
}

// ── Batch lifecycle hooks ───────────────────────────

func (b *Broker) OnBatchCreated(_ context.Context, op *batch.Operation) error {
	b.publish(&Event{
		Type:      EventBatchCreated,
		Timestamp: time.Now().UTC(),
		Topic:     BatchTopic(op.ID.String()),
		Data:      mustMarshal(batchData(op)),
	})
	return nil
}

func (b *Broker) OnBatchProgress(_ context.Context, op *batch.Operation) error {
	b.publish(&Event{
		Type:      EventBatchProgress,
		Timestamp: time.Now().UTC(),
		Topic:     BatchTopic(op.ID.String()),
		Data:      mustMarshal(batchData(op)),
	})
	return nil
}

func (b *Broker) OnBatchCompleted(_ context.Context, op *batch.Operation) error {
	b.publish(&Event{
		Type:      EventBatchCompleted,
		Timestamp: time.Now().UTC(),
		Topic:     BatchTopic(op.ID.String()),
		Data:      mustMarshal(batchData(op)),
	})
	return nil
}

// ── Workflow lifecycle hooks ────────────────────────

func (b *Broker) OnWorkflowStarted(_ context.Context, exec *workflow.Execution) error {
	b.publish(&Event{
		Type:      EventWorkflowStarted,
		Timestamp: time.Now().UTC(),
		Topic:     WorkflowTopic(exec.ID.String()),
		Data:      mustMarshal(workflowData(exec)),
	})
	return nil
}

func (b *Broker) OnWorkflowStepCompleted(_ context.Context, exec *workflow.Execution, result workflow.StepResult) error {
	data := workflowData(exec)
	data.StepID = result.StepID
	data.StepType = result.StepType
	b.publish(&Event{
		Type:      EventWorkflowStepCompleted,
		Timestamp: time.Now().UTC(),
		Topic:     WorkflowTopic(exec.ID.String()),
		Data:      mustMarshal(data),
	})
	return nil
}

func (b *Broker) OnWorkflowStepFailed(_ context.Context, exec *workflow.Execution, result workflow.StepResult) error {
	data := workflowData(exec)
	data.StepID = result.StepID
	data.StepType = result.StepType
	data.Error = result.Error
	b.publish(&Event{
		Type:      EventWorkflowStepFailed,
		Timestamp: time.Now().UTC(),
		Topic:     WorkflowTopic(exec.ID.String()),
		Data:      mustMarshal(data),
	})
	return nil
}

func (b *Broker) OnWorkflowCompleted(_ context.Context, exec *workflow.Execution) error {
	b.publish(&Event{
		Type:      EventWorkflowCompleted,
		Timestamp: time.Now().UTC(),
		Topic:     WorkflowTopic(exec.ID.String()),
		Data:      mustMarshal(workflowData(exec)),
	})
	return nil
}

func (b *Broker) OnWorkflowFailed(_ context.Context, exec *workflow.Execution) error {
	data := workflowData(exec)
	if n := len(exec.StepResults); n > 0 {
		data.Error = exec.StepResults[n-1].Error
	}
	b.publish(&Event{
		Type:      EventWorkflowFailed,
		Timestamp: time.Now().UTC(),
		Topic:     WorkflowTopic(exec.ID.String()),
		Data:      mustMarshal(data),
	})
	return nil
}

// ── Trigger lifecycle hooks ─────────────────────────

func (b *Broker) OnTriggerFired(_ context.Context, entryName string, execID id.ExecutionID) error {
	b.publish(&Event{
		Type:      EventTriggerFired,
		Timestamp: time.Now().UTC(),
		Data: mustMarshal(TriggerEventData{
			EntryName:   entryName,
			ExecutionID: execID.String(),
		}),
	})
	return nil
}

// ── Shutdown ────────────────────────────────────────

func (b *Broker) OnShutdown(_ context.Context) error {
	b.subscribers.Range(func(key, value any) bool {
		sub := value.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
		sub.Close()
		b.subscribers.Delete(key)
		return true
	})
	b.logger.Info("stream broker shut down")
	return nil
}
